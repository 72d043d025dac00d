package errors

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewErrorHandler(t *testing.T) {
	t.Setenv("RUNMATRIX_LOG_DIR", t.TempDir())

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	if handler == nil {
		t.Fatal("NewErrorHandler() returned nil handler")
	}
	if handler.logger == nil {
		t.Error("ErrorHandler.logger is nil")
	}
	if handler.console == nil {
		t.Error("ErrorHandler.console is nil")
	}
}

func TestErrorHandler_Handle_RunMatrixError(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv("RUNMATRIX_LOG_DIR", logDir)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	testErr := NewBootstrapError(
		"Bootstrapping environment py35",
		"Script exited with status 1",
		"Check the bootstrap script output above",
		errors.New("bootstrap failed for environment py35"),
	)

	handler.Handle(testErr)

	logFile := filepath.Join(logDir, "runmatrix.log")
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	if !strings.Contains(string(data), "bootstrap_failed") {
		t.Error("Expected log to record the bootstrap error type")
	}
	if !strings.Contains(string(data), "Bootstrapping environment py35") {
		t.Error("Expected log to record the error context")
	}
}

func TestErrorHandler_Handle_GenericError(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv("RUNMATRIX_LOG_DIR", logDir)

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	handler.Handle(errors.New("generic test error"))

	data, err := os.ReadFile(filepath.Join(logDir, "runmatrix.log"))
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	if !strings.Contains(string(data), "generic test error") {
		t.Error("Expected log to record the generic error")
	}
}

func TestErrorHandler_Handle_NilError(t *testing.T) {
	t.Setenv("RUNMATRIX_LOG_DIR", t.TempDir())

	handler, err := NewErrorHandler()
	if err != nil {
		t.Fatalf("NewErrorHandler() failed: %v", err)
	}

	// Handle nil error should not panic
	handler.Handle(nil)
}

func TestGetErrorTypeName(t *testing.T) {
	tests := []struct {
		errorType error
		expected  string
	}{
		{ErrManifestNotFound, "manifest_not_found"},
		{ErrManifestParseFailed, "manifest_parse_failed"},
		{ErrProvisioning, "provisioning_failed"},
		{ErrBootstrap, "bootstrap_failed"},
		{ErrTestFailure, "test_failure"},
		{ErrSourceFailed, "source_failed"},
		{ErrRuntimeFailed, "runtime_failed"},
		{ErrConfigInvalid, "config_invalid"},
		{ErrNetworkFailed, "network_failed"},
		{ErrFileSystemFailed, "filesystem_failed"},
		{errors.New("something else"), "unknown"},
	}

	for _, tt := range tests {
		if got := getErrorTypeName(tt.errorType); got != tt.expected {
			t.Errorf("getErrorTypeName(%v) = %q, want %q", tt.errorType, got, tt.expected)
		}
	}
}

func TestRunMatrixError_Unwrap(t *testing.T) {
	original := errors.New("container exited with status 1")
	wrapped := NewTestFailureError("Test run", "pytest failed", "", original)

	if !errors.Is(wrapped, original) {
		t.Error("Expected errors.Is to reach the original error")
	}
	if wrapped.Error() != original.Error() {
		t.Errorf("Expected Error() to surface the original message, got %q", wrapped.Error())
	}
}

func TestGetDefaultHandler_Singleton(t *testing.T) {
	t.Setenv("RUNMATRIX_LOG_DIR", t.TempDir())
	resetDefaultHandler()
	t.Cleanup(resetDefaultHandler)

	first, err := GetDefaultHandler()
	if err != nil {
		t.Fatalf("GetDefaultHandler() failed: %v", err)
	}
	second, err := GetDefaultHandler()
	if err != nil {
		t.Fatalf("GetDefaultHandler() failed: %v", err)
	}
	if first != second {
		t.Error("Expected the same handler instance on repeated calls")
	}
}

func TestHandleError_DoesNotPanic(t *testing.T) {
	t.Setenv("RUNMATRIX_LOG_DIR", t.TempDir())
	resetDefaultHandler()
	t.Cleanup(resetDefaultHandler)

	HandleError(errors.New("boom"))
	HandleError(nil)
}

func TestLogRotation(t *testing.T) {
	logDir := t.TempDir()
	logPath := filepath.Join(logDir, "runmatrix.log")

	// A file over the limit must be rotated aside.
	big := make([]byte, 10*1024*1024+1)
	if err := os.WriteFile(logPath, big, 0600); err != nil {
		t.Fatal(err)
	}

	if err := checkLogRotation(logPath); err != nil {
		t.Fatalf("checkLogRotation failed: %v", err)
	}

	if _, err := os.Stat(logPath + ".1"); err != nil {
		t.Error("Expected rotated log file at .1")
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("Expected current log file moved aside")
	}
}

func TestLogRotation_UnderLimit(t *testing.T) {
	logDir := t.TempDir()
	logPath := filepath.Join(logDir, "runmatrix.log")

	if err := os.WriteFile(logPath, []byte("small"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := checkLogRotation(logPath); err != nil {
		t.Fatalf("checkLogRotation failed: %v", err)
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Error("Expected small log file left in place")
	}
}
