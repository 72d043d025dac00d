// Package runner orchestrates the full test matrix: for each declared
// environment it provisions an isolated workspace, runs the bootstrap
// script, then the coverage-instrumented test suite, and reports
// per-environment pass/fail.
package runner

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "runmatrix/internal/errors"
	"runmatrix/internal/ui"
	"runmatrix/pkg/matrix"
	"runmatrix/pkg/runtime"
)

// Provisioner prepares an environment workspace and returns its host path.
type Provisioner interface {
	Provision(ctx context.Context, spec *matrix.Spec, env *matrix.Environment) (string, error)
}

// Bootstrapper runs the setup step that must succeed before tests.
type Bootstrapper interface {
	Bootstrap(ctx context.Context, spec *matrix.Spec, env *matrix.Environment, envDir string, extraArgs []string) error
}

// TestRunner executes the test suite and returns the coverage report path.
type TestRunner interface {
	Run(ctx context.Context, spec *matrix.Spec, env *matrix.Environment, envDir string) (string, error)
}

// SourceFetcher materializes the checkout of the package under test.
type SourceFetcher interface {
	Fetch(ctx context.Context, src *matrix.Source) error
}

// Notifier publishes per-environment results.
type Notifier interface {
	Publish(envName string, passed bool) error
}

// Options control a matrix run.
type Options struct {
	ManifestPath string
	Parallel     bool
	DryRun       bool
	RetainState  bool
	ExtraArgs    []string
}

// Runner drives all environments of a matrix.
type Runner struct {
	provisioner  Provisioner
	bootstrapper Bootstrapper
	tester       TestRunner
	fetcher      SourceFetcher
	notifier     Notifier // may be nil
	console      *ui.Console
}

// New creates a Runner. notifier may be nil when no reporting is configured.
func New(p Provisioner, b Bootstrapper, t TestRunner, f SourceFetcher, n Notifier) *Runner {
	return &Runner{
		provisioner:  p,
		bootstrapper: b,
		tester:       t,
		fetcher:      f,
		notifier:     n,
		console:      ui.NewConsole(),
	}
}

// Run attempts every environment exactly once and returns a result per
// environment name. All environments complete their attempts even when
// some fail; the returned error is non-nil iff at least one failed.
func (r *Runner) Run(ctx context.Context, m *matrix.Matrix, opts Options) (map[string]Result, error) {
	state, err := loadState()
	if err != nil {
		return nil, fmt.Errorf("failed to load execution state: %w", err)
	}

	if state == nil {
		runID := uuid.New().String()
		state = newState(opts.ManifestPath, runID)
		slog.Info("Starting matrix run", "runId", runID, "manifest", opts.ManifestPath, "environments", len(m.Spec.Environments))
	} else {
		r.console.PrintWarning(fmt.Sprintf("State file found. Resuming run %s", state.RunID))
		slog.Info("Resuming matrix run", "runId", state.RunID, "completed", len(state.Completed))
	}

	if opts.DryRun {
		r.printPlan(m, opts)
		return nil, nil
	}

	r.console.PrintStage(fmt.Sprintf("Fetching package under test: %s", m.Metadata.Name))
	if err := r.fetcher.Fetch(ctx, &m.Spec.Source); err != nil {
		return nil, apperrors.NewSourceError(
			"Fetching the package under test",
			err.Error(),
			"Check the source section of your matrix file and network access",
			err)
	}

	results := make(map[string]Result, len(m.Spec.Environments))
	var mu sync.Mutex

	runOne := func(env matrix.Environment) {
		if state.shouldSkipEnv(env.Name) {
			r.console.PrintSuccess(fmt.Sprintf("Environment %s skipped (already passed)", env.Name))
			mu.Lock()
			results[env.Name] = Result{Environment: env.Name, Step: StepDone, Resumed: true}
			mu.Unlock()
			return
		}

		r.console.PrintStage(fmt.Sprintf("Environment %s (%s)", env.Name, env.Image))
		res := r.runEnvironment(ctx, &m.Spec, &env, opts.ExtraArgs)

		mu.Lock()
		defer mu.Unlock()
		results[env.Name] = res
		if res.Failed() {
			r.console.PrintError(fmt.Sprintf("Environment %s failed at %s step: %s", env.Name, res.Step, res.Err))
			return
		}
		r.console.PrintSuccess(fmt.Sprintf("Environment %s passed in %s", env.Name, res.Duration.Round(time.Second)))
		state.markCompleted(env.Name)
		if err := saveState(state); err != nil {
			slog.Warn("Failed to save state", "error", err)
		}
	}

	if opts.Parallel {
		var wg sync.WaitGroup
		for _, env := range m.Spec.Environments {
			wg.Add(1)
			go func(env matrix.Environment) {
				defer wg.Done()
				runOne(env)
			}(env)
		}
		wg.Wait()
	} else {
		for _, env := range m.Spec.Environments {
			runOne(env)
		}
	}

	r.publishResults(results)

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
		}
	}

	if failed > 0 {
		// Keep the state file so a rerun resumes with the failed
		// environments only.
		if err := saveState(state); err != nil {
			slog.Warn("Failed to save state", "error", err)
		}
		return results, fmt.Errorf("%d of %d environments failed", failed, len(m.Spec.Environments))
	}

	if opts.RetainState {
		if err := saveState(state); err != nil {
			slog.Warn("Failed to save final state", "error", err)
		} else {
			slog.Info("State file retained for auditing", "file", StateFileName)
		}
	} else {
		if err := removeStateFile(); err != nil {
			slog.Warn("Failed to clean up state file", "error", err)
		}
	}

	r.console.PrintSuccess(fmt.Sprintf("All %d environments passed", len(m.Spec.Environments)))
	slog.Info("Matrix run completed successfully", "matrix", m.Metadata.Name)
	return results, nil
}

// runEnvironment executes one environment's command sequence in order:
// provision, bootstrap, test. A failed step halts the sequence and
// classifies the result.
func (r *Runner) runEnvironment(ctx context.Context, spec *matrix.Spec, env *matrix.Environment, extraArgs []string) Result {
	start := time.Now()
	res := Result{Environment: env.Name}

	envDir, err := r.provisioner.Provision(ctx, spec, env)
	if err != nil {
		res.Step = StepProvision
		res.ExitCode = exitCodeOf(err)
		res.Err = apperrors.NewProvisioningError(
			fmt.Sprintf("Provisioning environment %s", env.Name),
			err.Error(),
			"Check the image name and dependency list for this environment",
			err)
		res.Duration = time.Since(start)
		return res
	}

	if err := r.bootstrapper.Bootstrap(ctx, spec, env, envDir, extraArgs); err != nil {
		res.Step = StepBootstrap
		res.ExitCode = exitCodeOf(err)
		res.Err = apperrors.NewBootstrapError(
			fmt.Sprintf("Bootstrapping environment %s", env.Name),
			err.Error(),
			"Inspect the bootstrap script output in the log",
			err)
		res.Duration = time.Since(start)
		return res
	}

	coverage, err := r.tester.Run(ctx, spec, env, envDir)
	if err != nil {
		res.Step = StepTest
		res.ExitCode = exitCodeOf(err)
		res.Err = apperrors.NewTestFailureError(
			fmt.Sprintf("Running tests in environment %s", env.Name),
			err.Error(),
			"Inspect the test output in the log",
			err)
		res.Duration = time.Since(start)
		return res
	}

	res.Step = StepDone
	res.CoveragePath = coverage
	res.Duration = time.Since(start)
	return res
}

// publishResults posts one status per environment when a notifier is
// configured. Reporting problems never fail the run.
func (r *Runner) publishResults(results map[string]Result) {
	if r.notifier == nil {
		return
	}
	for name, res := range results {
		if err := r.notifier.Publish(name, !res.Failed()); err != nil {
			slog.Warn("Failed to publish environment status", "env", name, "error", err)
		}
	}
}

// printPlan describes what a run would do without touching Docker.
func (r *Runner) printPlan(m *matrix.Matrix, opts Options) {
	r.console.PrintWarning("DRY RUN MODE - No actual changes will be made")
	if m.Spec.Source.Git != nil {
		r.console.PrintInfo(fmt.Sprintf("Would fetch %s into %s", m.Spec.Source.Git.URL, m.Spec.Source.Path))
	}
	for _, env := range m.Spec.Environments {
		r.console.PrintInfo(fmt.Sprintf("Environment %s:", env.Name))
		r.console.PrintInfo(fmt.Sprintf("  would pull %s and install %d dependencies", env.Image, len(env.Deps)))
		bootstrapCmd := m.Spec.Bootstrap.Script
		if len(opts.ExtraArgs) > 0 {
			bootstrapCmd = fmt.Sprintf("%s %v", bootstrapCmd, opts.ExtraArgs)
		}
		r.console.PrintInfo(fmt.Sprintf("  would run bootstrap script %s", bootstrapCmd))
		r.console.PrintInfo(fmt.Sprintf("  would run %v over package %s", m.Spec.Test.Command, m.Spec.Package))
	}
}

// exitCodeOf extracts the container exit status from a wrapped error
// chain, or zero when the failure happened before the command ran.
func exitCodeOf(err error) int {
	var exitErr *runtime.ExitError
	if goerrors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 0
}
