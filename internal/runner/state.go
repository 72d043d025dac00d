package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ExecutionState records which environments already passed so an
// interrupted run can resume without repeating them. Environments are
// independent, so completion is tracked per environment rather than as
// a single linear stage.
type ExecutionState struct {
	SchemaVersion string          `json:"schema_version"`
	RunID         string          `json:"run_id"`
	ManifestPath  string          `json:"manifest_path"`
	Completed     map[string]bool `json:"completed"`
	CreatedAt     time.Time       `json:"created_at"`
	LastUpdatedAt time.Time       `json:"last_updated_at"`
}

const (
	StateFileName      = ".runmatrix.state.json"
	StateSchemaVersion = "1.0"
)

// loadState attempts to load the execution state from the state file.
// Returns nil if the file doesn't exist (fresh start).
func loadState() (*ExecutionState, error) {
	if _, err := os.Stat(StateFileName); os.IsNotExist(err) {
		return nil, nil // Fresh start - no state file exists
	}

	data, err := os.ReadFile(StateFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state ExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if state.Completed == nil {
		state.Completed = make(map[string]bool)
	}

	return &state, nil
}

// saveState persists the execution state to the state file.
func saveState(state *ExecutionState) error {
	state.LastUpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	if err := os.WriteFile(StateFileName, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// newState creates a new execution state for a fresh run
func newState(manifestPath, runID string) *ExecutionState {
	now := time.Now()
	return &ExecutionState{
		SchemaVersion: StateSchemaVersion,
		RunID:         runID,
		ManifestPath:  manifestPath,
		Completed:     make(map[string]bool),
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// shouldSkipEnv reports whether the environment already passed in a
// previous attempt of this run.
func (s *ExecutionState) shouldSkipEnv(name string) bool {
	if s == nil {
		return false
	}
	return s.Completed[name]
}

// markCompleted records an environment as passed.
func (s *ExecutionState) markCompleted(name string) {
	s.Completed[name] = true
}

// removeStateFile removes the state file after successful completion
func removeStateFile() error {
	if _, err := os.Stat(StateFileName); os.IsNotExist(err) {
		return nil // File doesn't exist, nothing to remove
	}

	if err := os.Remove(StateFileName); err != nil {
		return fmt.Errorf("failed to remove state file: %w", err)
	}

	return nil
}
