package errors

import "sync"

var (
	defaultHandler *ErrorHandler
	once           sync.Once
)

// GetDefaultHandler returns the process-wide handler, constructing it
// on first use.
func GetDefaultHandler() (*ErrorHandler, error) {
	var err error
	once.Do(func() {
		defaultHandler, err = NewErrorHandler()
	})
	return defaultHandler, err
}

// HandleError logs and prints err through the default handler. Errors
// constructing the handler itself are swallowed; the caller still gets
// its own error value to act on.
func HandleError(err error) {
	if handler, handlerErr := GetDefaultHandler(); handlerErr == nil {
		handler.Handle(err)
	}
}

// resetDefaultHandler resets the singleton for testing purposes
func resetDefaultHandler() {
	defaultHandler = nil
	once = sync.Once{}
}
