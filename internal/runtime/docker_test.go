package runtime

import (
	"errors"
	"strings"
	"testing"

	"runmatrix/pkg/runtime"
)

func TestExitError_Message(t *testing.T) {
	err := &runtime.ExitError{Code: 2}

	if !strings.Contains(err.Error(), "status 2") {
		t.Errorf("Expected exit status in message, got: %s", err.Error())
	}

	var exitErr *runtime.ExitError
	if !errors.As(err, &exitErr) {
		t.Error("Expected errors.As to match *runtime.ExitError")
	}
	if exitErr.Code != 2 {
		t.Errorf("Expected code 2, got %d", exitErr.Code)
	}
}

func TestNewDockerRuntime_RequiresDockerDaemon(t *testing.T) {
	// This test will fail if Docker daemon is not running, but that's expected
	// We're testing the error handling path
	_, err := NewDockerRuntime()

	if err != nil {
		errorMsg := err.Error()
		if errorMsg == "" {
			t.Error("Error message should not be empty")
		}

		if !strings.HasPrefix(errorMsg, "failed to create Docker client") &&
			!strings.HasPrefix(errorMsg, "failed to connect to Docker daemon") {
			t.Errorf("Unexpected error format: %s", errorMsg)
		}
	}
}
