package shift

import "fmt"

// ValidationError rejects a request before planning: bad deltas, no markers
// matching the filter, unknown parents. Surfaced to HTTP as 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StorageError wraps a failed transactional commit. The repository rolls the
// transaction back before this surfaces, so no partial writes remain.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("marker store commit failed: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
