package errors

import "errors"

var (
	ErrManifestNotFound    = errors.New("matrix file not found")
	ErrManifestParseFailed = errors.New("matrix parsing failed")
	ErrProvisioning        = errors.New("environment provisioning failed")
	ErrBootstrap           = errors.New("bootstrap failed")
	ErrTestFailure         = errors.New("test run failed")
	ErrSourceFailed        = errors.New("source fetch failed")
	ErrRuntimeFailed       = errors.New("runtime operation failed")
	ErrConfigInvalid       = errors.New("configuration invalid")
	ErrNetworkFailed       = errors.New("network operation failed")
	ErrFileSystemFailed    = errors.New("filesystem operation failed")
)

type RunMatrixError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *RunMatrixError) Error() string {
	return e.OriginalErr.Error()
}

func (e *RunMatrixError) Unwrap() error {
	return e.OriginalErr
}

func NewRunMatrixError(errorType error, context, cause, suggestion string, originalErr error) *RunMatrixError {
	return &RunMatrixError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewManifestError(context, cause, suggestion string, originalErr error) *RunMatrixError {
	return NewRunMatrixError(ErrManifestNotFound, context, cause, suggestion, originalErr)
}

func NewParseError(context, cause, suggestion string, originalErr error) *RunMatrixError {
	return NewRunMatrixError(ErrManifestParseFailed, context, cause, suggestion, originalErr)
}

func NewProvisioningError(context, cause, suggestion string, originalErr error) *RunMatrixError {
	return NewRunMatrixError(ErrProvisioning, context, cause, suggestion, originalErr)
}

func NewBootstrapError(context, cause, suggestion string, originalErr error) *RunMatrixError {
	return NewRunMatrixError(ErrBootstrap, context, cause, suggestion, originalErr)
}

func NewTestFailureError(context, cause, suggestion string, originalErr error) *RunMatrixError {
	return NewRunMatrixError(ErrTestFailure, context, cause, suggestion, originalErr)
}

func NewSourceError(context, cause, suggestion string, originalErr error) *RunMatrixError {
	return NewRunMatrixError(ErrSourceFailed, context, cause, suggestion, originalErr)
}

func NewRuntimeError(context, cause, suggestion string, originalErr error) *RunMatrixError {
	return NewRunMatrixError(ErrRuntimeFailed, context, cause, suggestion, originalErr)
}

func NewConfigError(context, cause, suggestion string, originalErr error) *RunMatrixError {
	return NewRunMatrixError(ErrConfigInvalid, context, cause, suggestion, originalErr)
}

func NewNetworkError(context, cause, suggestion string, originalErr error) *RunMatrixError {
	return NewRunMatrixError(ErrNetworkFailed, context, cause, suggestion, originalErr)
}

func NewFileSystemError(context, cause, suggestion string, originalErr error) *RunMatrixError {
	return NewRunMatrixError(ErrFileSystemFailed, context, cause, suggestion, originalErr)
}
