package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"runmatrix/internal/bootstrap"
	apperrors "runmatrix/internal/errors"
	"runmatrix/internal/notify"
	"runmatrix/internal/parser"
	"runmatrix/internal/provisioner"
	"runmatrix/internal/runner"
	"runmatrix/internal/runtime"
	"runmatrix/internal/source"
	"runmatrix/internal/tester"
	"runmatrix/pkg/matrix"
)

// version is set at build time via ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "runmatrix",
	Short:   "RunMatrix - Multi-environment test execution runner",
	Version: version,
	Long: `RunMatrix is a CLI tool that executes a package's test suite across a
matrix of isolated runtime environments. For each declared environment it
provisions dependencies, runs a Docker-based bootstrap step, then runs the
coverage-instrumented test suite, reporting per-environment pass/fail.`,
}

var runCmd = &cobra.Command{
	Use:   "run [-- extra bootstrap args]",
	Short: "Run the full test matrix",
	Long: `Run executes every environment declared in the matrix file: provisioning
its dependencies, bootstrapping the system under test, and running the test
suite with coverage. Environments are independent; all of them are attempted
even when some fail. Arguments after -- are forwarded to the bootstrap
script for every environment.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		parallel, _ := cmd.Flags().GetBool("parallel")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		retainState, _ := cmd.Flags().GetBool("retain-state")

		m, err := parser.Parse(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		r, err := buildRunner(m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		opts := runner.Options{
			ManifestPath: file,
			Parallel:     parallel,
			DryRun:       dryRun,
			RetainState:  retainState,
			ExtraArgs:    args,
		}

		if _, err := r.Run(context.Background(), m, opts); err != nil {
			apperrors.HandleError(err)
			os.Exit(1)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a matrix file without running anything",
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")

		m, err := parser.Parse(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		fmt.Printf("Matrix '%s' is valid: %d environments declared\n", m.Metadata.Name, len(m.Spec.Environments))
	},
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a single environment's workspace",
	Long: `Provision pulls the environment's runtime image, copies the checkout into
an isolated workspace, and installs the declared dependencies. Useful for
debugging one environment without running its test suite.`,
	Run: func(cmd *cobra.Command, args []string) {
		m, env := parseWithEnv(cmd)

		rt, err := runtime.NewDockerRuntime()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating Docker runtime: %s\n", err)
			os.Exit(1)
		}

		if err := source.NewFetcher().Fetch(cmd.Context(), &m.Spec.Source); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		envDir, err := provisioner.NewEnvProvisioner(rt).Provision(cmd.Context(), &m.Spec, env)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		fmt.Printf("Environment %s provisioned at: %s\n", env.Name, envDir)
	},
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap [-- extra args]",
	Short: "Run the bootstrap script for a single provisioned environment",
	Run: func(cmd *cobra.Command, args []string) {
		m, env := parseWithEnv(cmd)

		rt, err := runtime.NewDockerRuntime()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating Docker runtime: %s\n", err)
			os.Exit(1)
		}

		envDir, err := workspacePath(&m.Spec, env.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		if err := bootstrap.NewBootstrapper(rt).Bootstrap(cmd.Context(), &m.Spec, env, envDir, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		fmt.Printf("Environment %s bootstrapped\n", env.Name)
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the test suite for a single bootstrapped environment",
	Run: func(cmd *cobra.Command, args []string) {
		m, env := parseWithEnv(cmd)

		rt, err := runtime.NewDockerRuntime()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating Docker runtime: %s\n", err)
			os.Exit(1)
		}

		envDir, err := workspacePath(&m.Spec, env.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		coverage, err := tester.NewTestRunner(rt).Run(cmd.Context(), &m.Spec, env, envDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		if coverage != "" {
			fmt.Printf("Environment %s passed, coverage report: %s\n", env.Name, coverage)
		} else {
			fmt.Printf("Environment %s passed\n", env.Name)
		}
	},
}

// buildRunner wires the full orchestrator from a parsed matrix.
func buildRunner(m *matrix.Matrix) (*runner.Runner, error) {
	rt, err := runtime.NewDockerRuntime()
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker runtime: %w", err)
	}

	var notifier runner.Notifier
	if m.Spec.Reporting != nil && m.Spec.Reporting.GitLab != nil {
		n, err := notify.NewGitLabNotifier(m.Spec.Reporting.GitLab)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitLab notifier: %w", err)
		}
		notifier = n
	}

	return runner.New(
		provisioner.NewEnvProvisioner(rt),
		bootstrap.NewBootstrapper(rt),
		tester.NewTestRunner(rt),
		source.NewFetcher(),
		notifier,
	), nil
}

// parseWithEnv parses the matrix file and resolves the --env flag to a
// declared environment, exiting on any error.
func parseWithEnv(cmd *cobra.Command) (*matrix.Matrix, *matrix.Environment) {
	file, _ := cmd.Flags().GetString("file")
	envName, _ := cmd.Flags().GetString("env")

	m, err := parser.Parse(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	for i := range m.Spec.Environments {
		if m.Spec.Environments[i].Name == envName {
			return m, &m.Spec.Environments[i]
		}
	}

	fmt.Fprintf(os.Stderr, "Error: environment '%s' is not declared in the matrix file\n", envName)
	os.Exit(1)
	return nil, nil
}

func workspacePath(spec *matrix.Spec, envName string) (string, error) {
	return filepath.Abs(filepath.Join(spec.WorkDir, envName))
}

func init() {
	runCmd.Flags().StringP("file", "f", "", "Path to the matrix YAML file (required)")
	runCmd.Flags().Bool("parallel", false, "Run environments concurrently")
	runCmd.Flags().Bool("dry-run", false, "Print the execution plan without running anything")
	runCmd.Flags().Bool("retain-state", false, "Keep the state file after successful completion for auditing purposes")
	if err := runCmd.MarkFlagRequired("file"); err != nil {
		slog.Error("Failed to mark file flag as required for run command", "error", err)
	}
	rootCmd.AddCommand(runCmd)

	validateCmd.Flags().StringP("file", "f", "", "Path to the matrix YAML file (required)")
	if err := validateCmd.MarkFlagRequired("file"); err != nil {
		slog.Error("Failed to mark file flag as required for validate command", "error", err)
	}
	rootCmd.AddCommand(validateCmd)

	for _, cmd := range []*cobra.Command{provisionCmd, bootstrapCmd, testCmd} {
		cmd.Flags().StringP("file", "f", "", "Path to the matrix YAML file (required)")
		cmd.Flags().StringP("env", "e", "", "Environment name to operate on (required)")
		if err := cmd.MarkFlagRequired("file"); err != nil {
			slog.Error("Failed to mark file flag as required", "command", cmd.Name(), "error", err)
		}
		if err := cmd.MarkFlagRequired("env"); err != nil {
			slog.Error("Failed to mark env flag as required", "command", cmd.Name(), "error", err)
		}
		rootCmd.AddCommand(cmd)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
