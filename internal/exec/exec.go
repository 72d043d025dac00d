// Package exec runs a single command in a container and streams its
// output through the structured logger.
package exec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"runmatrix/pkg/runtime"
)

// Run executes a command via the container runtime, streaming output
// lines as they arrive. It returns the container exit code and a
// non-nil error when the command did not finish with status zero.
func Run(ctx context.Context, rt runtime.ContainerRuntime, opts runtime.RunOptions, label string) (int, error) {
	slog.Info("Executing command", "step", label, "image", opts.Image, "command", opts.Command)

	reader, err := rt.RunContainer(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to run container: %w", err)
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := cleanDockerLogLine(scanner.Text())
		if line != "" {
			slog.Info("Command output", "step", label, "line", line)
		}
	}

	if err := scanner.Err(); err != nil {
		reader.Close() // Best effort cleanup
		return 0, fmt.Errorf("error reading container output: %w", err)
	}

	// Close waits for the container; a non-zero exit surfaces here.
	if err := reader.Close(); err != nil {
		var exitErr *runtime.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code, fmt.Errorf("%s command failed: %w", label, err)
		}
		return 0, fmt.Errorf("%s command failed: %w", label, err)
	}

	slog.Info("Command completed successfully", "step", label)
	return 0, nil
}

// ansiRegex is a compiled regex for ANSI escape sequences
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// cleanDockerLogLine removes Docker log headers, ANSI escape sequences, and filters out binary/control characters.
func cleanDockerLogLine(line string) string {
	// Skip empty lines
	if len(line) == 0 {
		return ""
	}

	// Docker log format has 8-byte header: [STREAM_TYPE][0][0][0][SIZE]
	// Remove Docker log header if present
	if len(line) >= 8 {
		if line[0] == 1 || line[0] == 2 { // stdout or stderr stream type
			if len(line) > 8 {
				line = line[8:]
			} else {
				return "" // Header only, no content
			}
		}
	}

	// Remove ANSI escape sequences (colors, formatting, etc.)
	line = ansiRegex.ReplaceAllString(line, "")

	// Remove common control characters
	line = strings.ReplaceAll(line, "\x00", "")
	line = strings.ReplaceAll(line, "\x01", "")
	line = strings.ReplaceAll(line, "\x02", "")
	line = strings.ReplaceAll(line, "\x03", "")

	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return ""
	}

	// Filter out lines that are mostly binary/control characters
	printableChars := 0
	for _, r := range line {
		if r >= 32 && r <= 126 { // printable ASCII range
			printableChars++
		}
	}

	if float64(printableChars)/float64(len(line)) < 0.5 {
		return ""
	}

	return line
}
