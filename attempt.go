package decodefuzz

import (
	"fmt"
	"runtime/debug"
)

// Harness runs Decode Attempts under a fixed Config, drawing scratch memory from one Allocator.
// Attempts made through the same Harness are independent of one another.
type Harness struct {
	cfg   Config
	alloc *Allocator
}

// New creates a Harness with its own Allocator.
func New(cfg Config) *Harness {
	cfg = cfg.withDefaults()
	return &Harness{cfg: cfg, alloc: NewAllocator(cfg.ScratchBudget)}
}

// Config returns the harness configuration, with defaults applied.
func (h *Harness) Config() Config { return h.cfg }

// Stats reports the counters of the harness's Allocator.
func (h *Harness) Stats() Stats { return h.alloc.Stats() }

// handle owns an open Decoder and its scope, and releases both exactly once.
type handle struct {
	target string
	d      Decoder
	scope  *Scope
	alloc  *Allocator
	done   bool
}

func (hd *handle) release() (err error) {
	if hd.done {
		return nil
	}
	hd.done = true
	defer func() {
		if p := recover(); p != nil {
			err = &AbortError{Target: hd.target, Value: p, Stack: debug.Stack()}
		}
		if n := hd.scope.close(); n > 0 {
			log.Debugf("%s: reclaimed %d scratch buffers on release", hd.target, n)
		}
		if hd.d != nil {
			hd.alloc.noteReleased()
		}
	}()
	if hd.d != nil {
		hd.d.Release()
	}
	return nil
}

// Attempt decodes data exactly once with t. It never panics because of the input: a panic raised
// by the decoder is recovered and reported as Aborted. The decoder handle and every scratch buffer
// are released before Attempt returns, whatever the outcome.
func (h *Harness) Attempt(t Target, data []byte) (res Result) {
	if len(data) == 0 || len(data) < t.MinHeaderLen() {
		return Result{Outcome: Rejected, Err: ErrTooShort}
	}

	hd := &handle{target: t.Name(), scope: newScope(h.cfg, h.alloc), alloc: h.alloc}
	defer func() {
		if p := recover(); p != nil {
			res.Outcome = Aborted
			res.Err = &AbortError{Target: hd.target, Value: p, Stack: debug.Stack()}
			log.Errorf("%v", res.Err)
		}
		if err := hd.release(); err != nil && res.Outcome != Aborted {
			res.Outcome, res.Err = Aborted, err
			log.Errorf("%v", err)
		}
	}()

	d, err := t.Open(data, hd.scope)
	if d != nil {
		// Released even when Open also reports an error.
		hd.d = d
		h.alloc.noteOpened()
	}
	if err != nil {
		log.Debugf("%s: open failed: %v", hd.target, err)
		return Result{Outcome: Rejected, Err: err}
	}
	if d == nil {
		return Result{Outcome: Rejected, Err: fmt.Errorf("%s: no decoder", hd.target)}
	}

	if err := d.CheckHeader(); err != nil {
		log.Debugf("%s: header rejected: %v", hd.target, err)
		return Result{Outcome: Rejected, Err: fmt.Errorf("%w: %w", ErrHeader, err)}
	}

	for res.Steps < h.cfg.MaxSteps {
		done, err := d.Step()
		if err != nil {
			log.Debugf("%s: rejected after %d steps: %v", hd.target, res.Steps, err)
			res.Outcome, res.Err = Rejected, err
			return res
		}
		res.Steps++
		if done {
			res.Outcome = Succeeded
			return res
		}
	}
	res.Outcome, res.Err = Rejected, ErrStepLimit
	return res
}
