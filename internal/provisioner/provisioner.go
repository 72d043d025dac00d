// Package provisioner materializes one isolated workspace per
// environment: the runtime image is pulled, the checkout is copied into
// the environment's own directory, and the declared dependencies are
// installed inside a container.
package provisioner

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"runmatrix/internal/exec"
	"runmatrix/pkg/matrix"
	"runmatrix/pkg/runtime"
)

const (
	// WorkspaceMount is the container path the environment workspace is mounted at.
	WorkspaceMount = "/workspace"
)

// EnvProvisioner provisions environment workspaces using a container runtime.
type EnvProvisioner struct {
	containerRuntime runtime.ContainerRuntime
}

// NewEnvProvisioner creates a new EnvProvisioner.
func NewEnvProvisioner(containerRuntime runtime.ContainerRuntime) *EnvProvisioner {
	return &EnvProvisioner{
		containerRuntime: containerRuntime,
	}
}

// Provision prepares the workspace for a single environment and installs
// its dependencies. The returned path is the environment's workspace
// directory on the host.
func (p *EnvProvisioner) Provision(ctx context.Context, spec *matrix.Spec, env *matrix.Environment) (string, error) {
	checkout := spec.Source.Path
	if _, err := os.Stat(checkout); os.IsNotExist(err) {
		return "", fmt.Errorf("checkout directory does not exist: %s", checkout)
	}

	slog.Info("Provisioning environment", "env", env.Name, "image", env.Image)

	if err := p.containerRuntime.PullImage(ctx, env.Image); err != nil {
		return "", fmt.Errorf("failed to pull image for environment %s: %w", env.Name, err)
	}

	envDir, err := filepath.Abs(filepath.Join(spec.WorkDir, env.Name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace path: %w", err)
	}

	// Each environment gets a fresh copy of the checkout so nothing
	// leaks between environments.
	if err := os.RemoveAll(envDir); err != nil {
		return "", fmt.Errorf("failed to clear previous workspace: %w", err)
	}
	if err := os.MkdirAll(envDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create workspace directory: %w", err)
	}
	if err := copyDirectory(checkout, envDir); err != nil {
		return "", fmt.Errorf("failed to copy checkout into workspace: %w", err)
	}

	if len(env.Deps) == 0 {
		slog.Info("No dependencies declared, skipping install", "env", env.Name)
		return envDir, nil
	}

	opts := runtime.RunOptions{
		Image:   env.Image,
		Command: append(spec.InstallerCommand(), env.Deps...),
		VolumeMounts: map[string]string{
			envDir: WorkspaceMount,
		},
		WorkingDirectory: WorkspaceMount,
	}

	if _, err := exec.Run(ctx, p.containerRuntime, opts, "provision"); err != nil {
		return "", fmt.Errorf("dependency installation failed for environment %s: %w", env.Name, err)
	}

	slog.Info("Environment provisioned", "env", env.Name, "workspace", envDir)
	return envDir, nil
}

// copyDirectory recursively copies a directory from src to dst.
func copyDirectory(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		destPath := filepath.Join(dst, relPath)

		if d.IsDir() {
			return os.MkdirAll(destPath, 0750)
		}

		return copyFile(path, destPath)
	})
}

// validatePath ensures the path is safe and doesn't contain directory traversal sequences
func validatePath(path string) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}
	return nil
}

// copyFile copies a single file from src to dst.
func copyFile(src, dst string) error {
	if err := validatePath(src); err != nil {
		return fmt.Errorf("invalid source path: %w", err)
	}
	if err := validatePath(dst); err != nil {
		return fmt.Errorf("invalid destination path: %w", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	if err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	// Copy file permissions
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to get source file info: %w", err)
	}

	return os.Chmod(dst, srcInfo.Mode())
}
