// Package bootstrap runs the setup script that must succeed before an
// environment's test run starts.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"runmatrix/internal/exec"
	"runmatrix/pkg/matrix"
	"runmatrix/pkg/runtime"
)

const (
	// WorkspaceMount is the container path the environment workspace is mounted at.
	WorkspaceMount = "/workspace"

	// DockerSocket is mounted so the bootstrap script can start the lab
	// containers it needs.
	DockerSocket = "/var/run/docker.sock"
)

// Bootstrapper executes the bootstrap script inside a container.
type Bootstrapper struct {
	containerRuntime runtime.ContainerRuntime
}

// NewBootstrapper creates a new Bootstrapper.
func NewBootstrapper(containerRuntime runtime.ContainerRuntime) *Bootstrapper {
	return &Bootstrapper{
		containerRuntime: containerRuntime,
	}
}

// Bootstrap runs the configured script in the environment's image with
// any caller-supplied extra arguments appended verbatim. The script path
// is relative to the workspace root and must exist there.
func (b *Bootstrapper) Bootstrap(ctx context.Context, spec *matrix.Spec, env *matrix.Environment, envDir string, extraArgs []string) error {
	scriptHost := filepath.Join(envDir, spec.Bootstrap.Script)
	if _, err := os.Stat(scriptHost); os.IsNotExist(err) {
		return fmt.Errorf("bootstrap script not found in workspace: %s", spec.Bootstrap.Script)
	}

	command := []string{"/bin/sh", filepath.Join(WorkspaceMount, spec.Bootstrap.Script)}
	command = append(command, extraArgs...)

	slog.Info("Bootstrapping environment", "env", env.Name, "script", spec.Bootstrap.Script, "extraArgs", extraArgs)

	opts := runtime.RunOptions{
		Image:   env.Image,
		Command: command,
		VolumeMounts: map[string]string{
			envDir:       WorkspaceMount,
			DockerSocket: DockerSocket,
		},
		WorkingDirectory: WorkspaceMount,
	}

	if _, err := exec.Run(ctx, b.containerRuntime, opts, "bootstrap"); err != nil {
		return fmt.Errorf("bootstrap failed for environment %s: %w", env.Name, err)
	}

	slog.Info("Bootstrap completed", "env", env.Name)
	return nil
}
