// Package util provides general utilities for decodefuzz tools.
package util

import (
	"context"
	"errors"

	"github.com/getlantern/decodefuzz"
)

// TimeoutError is returned when an attempt overruns its deadline.
type TimeoutError string

func (err TimeoutError) Error() string { return string(err) }

// Timeout returns true.
func (err TimeoutError) Timeout() bool { return true }

// Temporary returns false.
func (err TimeoutError) Temporary() bool { return false }

// AttemptContext runs one Decode Attempt with h. If the attempt is not finished by the context
// deadline, a TimeoutError is returned; if the context is canceled first, its error is returned.
// The attempt itself cannot be interrupted. It keeps running in the background until it finishes
// and its result is discarded.
func AttemptContext(ctx context.Context, h *decodefuzz.Harness, t decodefuzz.Target, data []byte) (decodefuzz.Result, error) {
	if ctx.Done() == nil {
		return h.Attempt(t, data), nil
	}

	resc := make(chan decodefuzz.Result, 1)
	go func() {
		resc <- h.Attempt(t, data)
	}()
	select {
	case res := <-resc:
		return res, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return decodefuzz.Result{}, TimeoutError("timed out decoding " + t.Name() + " input")
		}
		return decodefuzz.Result{}, ctx.Err()
	}
}
