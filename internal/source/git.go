// Package source fetches the package under test into the checkout
// directory before any environment runs.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"runmatrix/pkg/matrix"
)

// Fetcher materializes the checkout declared in the manifest's source section.
type Fetcher struct {
	token string
}

// NewFetcher creates a Fetcher. The optional RUNMATRIX_GIT_TOKEN
// environment variable supplies credentials for private repositories.
func NewFetcher() *Fetcher {
	return &Fetcher{
		token: os.Getenv("RUNMATRIX_GIT_TOKEN"),
	}
}

// Fetch ensures the checkout directory exists. When the source declares
// a git origin and the directory holds no repository yet, it clones
// url@ref there. An existing checkout is left untouched so local edits
// survive reruns.
func (f *Fetcher) Fetch(ctx context.Context, src *matrix.Source) error {
	if src.Git == nil {
		if _, err := os.Stat(src.Path); os.IsNotExist(err) {
			return fmt.Errorf("checkout directory does not exist: %s", src.Path)
		}
		return nil
	}

	if _, err := os.Stat(filepath.Join(src.Path, ".git")); err == nil {
		slog.Info("Checkout already present, skipping fetch", "path", src.Path)
		return nil
	}

	slog.Info("Fetching package under test", "url", src.Git.URL, "ref", src.Git.Ref, "path", src.Path)

	cloneOpts := &git.CloneOptions{
		URL:          src.Git.URL,
		SingleBranch: true,
	}
	if src.Git.Ref != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(src.Git.Ref)
	}
	if f.token != "" {
		cloneOpts.Auth = &http.BasicAuth{
			Username: "oauth2", // GitLab uses oauth2 as username for token auth
			Password: f.token,
		}
	}

	if _, err := git.PlainCloneContext(ctx, src.Path, false, cloneOpts); err != nil {
		return fmt.Errorf("failed to clone source repository: %w", err)
	}

	slog.Info("Checkout ready", "path", src.Path)
	return nil
}
