// Package notify publishes per-environment results as GitLab commit
// statuses when the manifest asks for it.
package notify

import (
	"fmt"
	"log/slog"
	"os"

	gitlab "github.com/xanzy/go-gitlab"

	"runmatrix/pkg/matrix"
)

// Notifier defines the contract for publishing environment results.
type Notifier interface {
	Publish(envName string, passed bool) error
}

// GitLabNotifier implements the Notifier interface using the GitLab
// commit status API.
type GitLabNotifier struct {
	client  *gitlab.Client
	project string
	sha     string
}

// NewGitLabNotifier creates a notifier from the manifest's reporting
// section. Authentication comes from GITLAB_PRIVATE_TOKEN.
func NewGitLabNotifier(cfg *matrix.GitLabReporting) (*GitLabNotifier, error) {
	token := os.Getenv("GITLAB_PRIVATE_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITLAB_PRIVATE_TOKEN environment variable is required")
	}

	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(cfg.URL+"/api/v4"))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return &GitLabNotifier{
		client:  client,
		project: cfg.Project,
		sha:     cfg.SHA,
	}, nil
}

// Publish posts one commit status for the environment, using the
// context "runmatrix/<env>" so each environment shows as its own check.
func (n *GitLabNotifier) Publish(envName string, passed bool) error {
	state := gitlab.Failed
	description := "test environment failed"
	if passed {
		state = gitlab.Success
		description = "test environment passed"
	}

	statusContext := fmt.Sprintf("runmatrix/%s", envName)
	opts := &gitlab.SetCommitStatusOptions{
		State:       state,
		Context:     gitlab.String(statusContext),
		Description: gitlab.String(description),
	}

	_, _, err := n.client.Commits.SetCommitStatus(n.project, n.sha, opts)
	if err != nil {
		return fmt.Errorf("failed to set commit status for %s: %w", envName, err)
	}

	slog.Info("Published commit status", "project", n.project, "sha", n.sha, "context", statusContext, "state", state)
	return nil
}
