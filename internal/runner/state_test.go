package runner

import (
	"os"
	"testing"
)

func TestState_FreshStart(t *testing.T) {
	chdir(t, t.TempDir())

	state, err := loadState()
	if err != nil {
		t.Fatalf("loadState failed: %v", err)
	}
	if state != nil {
		t.Error("Expected nil state when no file exists")
	}
}

func TestState_SaveAndLoadRoundTrip(t *testing.T) {
	chdir(t, t.TempDir())

	state := newState("matrix.yaml", "run-123")
	state.markCompleted("py27")
	state.markCompleted("py36")

	if err := saveState(state); err != nil {
		t.Fatalf("saveState failed: %v", err)
	}

	loaded, err := loadState()
	if err != nil {
		t.Fatalf("loadState failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected loaded state, got nil")
	}
	if loaded.RunID != "run-123" {
		t.Errorf("Expected RunID 'run-123', got %q", loaded.RunID)
	}
	if !loaded.shouldSkipEnv("py27") || !loaded.shouldSkipEnv("py36") {
		t.Error("Expected completed environments to be skipped")
	}
	if loaded.shouldSkipEnv("py35") {
		t.Error("Expected py35 not skipped")
	}
}

func TestState_CorruptFile(t *testing.T) {
	chdir(t, t.TempDir())

	if err := os.WriteFile(StateFileName, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := loadState(); err == nil {
		t.Error("Expected error for corrupt state file")
	}
}

func TestState_NilReceiverNeverSkips(t *testing.T) {
	var state *ExecutionState
	if state.shouldSkipEnv("py27") {
		t.Error("Nil state must not skip any environment")
	}
}

func TestRemoveStateFile(t *testing.T) {
	chdir(t, t.TempDir())

	// Removing a missing file is not an error.
	if err := removeStateFile(); err != nil {
		t.Errorf("Expected no error for missing file, got: %v", err)
	}

	if err := saveState(newState("matrix.yaml", "run-1")); err != nil {
		t.Fatal(err)
	}
	if err := removeStateFile(); err != nil {
		t.Fatalf("removeStateFile failed: %v", err)
	}
	if _, err := os.Stat(StateFileName); !os.IsNotExist(err) {
		t.Error("Expected state file removed")
	}
}
