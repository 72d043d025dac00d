// Package tester executes the coverage-instrumented test run for one
// environment and locates the coverage artifact it produced.
package tester

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

	// CoverageDir is where the HTML coverage report lands inside the
	// workspace. The test command's own flags direct output here.
	CoverageDir = "htmlcov"
)

// TestRunner runs the test suite inside a container.
type TestRunner struct {
	containerRuntime runtime.ContainerRuntime
}

// NewTestRunner creates a new TestRunner.
func NewTestRunner(containerRuntime runtime.ContainerRuntime) *TestRunner {
	return &TestRunner{
		containerRuntime: containerRuntime,
	}
}

// Run executes the test command over the target package. Prior coverage
// data in the workspace is erased first so each run reports fresh
// numbers. On success it returns the host path of the coverage report
// directory, or an empty string when the command produced none.
func (r *TestRunner) Run(ctx context.Context, spec *matrix.Spec, env *matrix.Environment, envDir string) (string, error) {
	if err := resetCoverage(envDir); err != nil {
		return "", fmt.Errorf("failed to reset coverage data: %w", err)
	}

	command := append([]string{}, spec.Test.Command...)
	command = append(command, spec.Package)

	slog.Info("Running test suite", "env", env.Name, "package", spec.Package, "command", command)

	opts := runtime.RunOptions{
		Image:   env.Image,
		Command: command,
		VolumeMounts: map[string]string{
			envDir: WorkspaceMount,
		},
		WorkingDirectory: WorkspaceMount,
	}

	if _, err := exec.Run(ctx, r.containerRuntime, opts, "test"); err != nil {
		return "", fmt.Errorf("test run failed for environment %s: %w", env.Name, err)
	}

	coveragePath := filepath.Join(envDir, CoverageDir)
	if _, err := os.Stat(coveragePath); os.IsNotExist(err) {
		slog.Warn("Test run produced no coverage report", "env", env.Name, "expected", coveragePath)
		return "", nil
	}

	slog.Info("Test run completed", "env", env.Name, "coverage", coveragePath)
	return coveragePath, nil
}

// resetCoverage removes coverage artifacts left by a previous run.
func resetCoverage(envDir string) error {
	for _, name := range []string{CoverageDir, ".coverage"} {
		if err := os.RemoveAll(filepath.Join(envDir, name)); err != nil {
			return err
		}
	}
	return nil
}
