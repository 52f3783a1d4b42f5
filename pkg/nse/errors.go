package nse

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a Config with non-positive dimensions or
	// degrees.
	ErrInvalidConfig = errors.New("nse: invalid config")

	// ErrConfigMismatch indicates the configured window size disagrees with
	// the accelerator's reported leaf count. Fatal at construction, never
	// recovered.
	ErrConfigMismatch = errors.New("nse: config does not match accelerator")

	// ErrBuild indicates the assembled kernel program failed to compile or
	// load on the accelerator. The program text is deterministic for a given
	// Config, so retrying without changing the input cannot succeed.
	ErrBuild = errors.New("nse: accelerator program build failed")

	// ErrExecution indicates a generation or combine call failed at runtime,
	// including calls issued while no valid previous-layer context is
	// resident. The sequencing position is left unchanged for the failed
	// step; the caller may re-issue it.
	ErrExecution = errors.New("nse: accelerator execution failed")

	// ErrSequencing guards against a layer index outside the configured
	// budget. It is not reachable through the public stepping interface; a
	// reachable occurrence is a programming defect.
	ErrSequencing = errors.New("nse: layer sequencing violation")

	// ErrExhausted signals that all layers for the window have been
	// produced. Further steps keep returning ErrExhausted.
	ErrExhausted = errors.New("nse: key generator exhausted")
)

// Error wraps an underlying error with the operation that failed.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("nse.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// errorf creates a new Error
func errorf(op string, format string, args ...any) error {
	return &Error{
		Op:  op,
		Err: fmt.Errorf(format, args...),
	}
}
