// Located in pkg/runtime/runtime.go
package runtime

import (
	"context"
	"fmt"
	"io"
)

// RunOptions defines the parameters for running a container.
type RunOptions struct {
	Image            string
	Command          []string
	VolumeMounts     map[string]string
	EnvVars          map[string]string
	WorkingDirectory string
}

// ContainerRuntime defines the contract for container operations.
// Closing the reader returned by RunContainer waits for the container
// and reports a non-zero exit status as an *ExitError.
type ContainerRuntime interface {
	PullImage(ctx context.Context, image string) error
	RunContainer(ctx context.Context, opts RunOptions) (io.ReadCloser, error)
}

// ExitError is returned from the output reader's Close when the
// container finished with a non-zero exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("container exited with status %d", e.Code)
}
