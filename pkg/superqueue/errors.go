package superqueue

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOption = errors.New("invalid option")
	ErrUnknownFlag   = errors.New("unknown flag")
	ErrMissingTask   = errors.New("missing task")
	ErrDuplicateFlag = errors.New("duplicate flag name")
	ErrClosed        = errors.New("queue closed")
)

func invalidOption(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOption, fmt.Sprintf(format, args...))
}

func unknownFlag(name string) error {
	return fmt.Errorf("%w: no flag named %q", ErrUnknownFlag, name)
}

// PanicError is the failure outcome of a task that panicked.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }
