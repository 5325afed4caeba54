package decodefuzz

import (
	"errors"
	"fmt"
)

var (
	// ErrTooShort is reported for inputs shorter than the target's minimal header.
	ErrTooShort = errors.New("input too short for header")

	// ErrHeader wraps the error returned by a failed header check.
	ErrHeader = errors.New("invalid header")

	// ErrScratchExhausted is returned by Scope.Alloc when the scratch budget would be exceeded.
	ErrScratchExhausted = errors.New("scratch budget exhausted")

	// ErrStepLimit is reported when the decode loop does not finish within Config.MaxSteps.
	ErrStepLimit = errors.New("step limit reached")
)

// AbortError is the error attached to an Aborted result. It records the value recovered from the
// decoder's panic.
type AbortError struct {
	Target string
	Value  interface{}
	Stack  []byte
}

func (err *AbortError) Error() string {
	return fmt.Sprintf("%s decoder aborted: %v", err.Target, err.Value)
}

// Unwrap exposes the recovered value when it was itself an error, e.g. a runtime.Error.
func (err *AbortError) Unwrap() error {
	if e, ok := err.Value.(error); ok {
		return e
	}
	return nil
}
