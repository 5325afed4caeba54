package decodefuzz

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlantern/decodefuzz/internal/testutil"
)

// fakeTarget is a configurable Target. The input's first byte must be 'F' to pass the header
// check; the decoder then takes len(data) steps, one per byte, allocating a scratch row first.
type fakeTarget struct {
	minLen         int
	openErr        error
	openPartial    bool // return a decoder along with openErr
	openPanic      bool
	leak           bool
	panicAt        int // step at which to panic; 0 disables
	failAt         int // step at which to fail; 0 disables
	panicOnRelease bool
	scratch        int
	endless        bool

	opened, released int
}

func (t *fakeTarget) Name() string      { return "fake" }
func (t *fakeTarget) MinHeaderLen() int { return t.minLen }

func (t *fakeTarget) Open(data []byte, scope *Scope) (Decoder, error) {
	if t.openPanic {
		panic("open exploded")
	}
	if t.openErr != nil && !t.openPartial {
		return nil, t.openErr
	}
	t.opened++
	return &fakeDecoder{t: t, data: data, scope: scope}, t.openErr
}

type fakeDecoder struct {
	t     *fakeTarget
	data  []byte
	scope *Scope
	row   []byte
	step  int
}

func (d *fakeDecoder) CheckHeader() error {
	if d.data[0] != 'F' {
		return errors.New("missing F")
	}
	row, err := d.scope.Alloc(d.t.scratch)
	if err != nil {
		return err
	}
	d.row = row
	return nil
}

func (d *fakeDecoder) Step() (bool, error) {
	d.step++
	if d.step == d.t.panicAt {
		var m map[string]int
		m["boom"]++
	}
	if d.step == d.t.failAt {
		return false, fmt.Errorf("corrupt at step %d", d.step)
	}
	if d.t.endless {
		return false, nil
	}
	return d.step >= len(d.data), nil
}

func (d *fakeDecoder) Release() {
	d.t.released++
	if !d.t.leak {
		d.scope.Free(d.row)
	}
	if d.t.panicOnRelease {
		panic("release exploded")
	}
}

func requireBalanced(t *testing.T, h *Harness) {
	t.Helper()
	s := h.Stats()
	require.Equal(t, s.Allocs, s.Frees, "allocations and frees differ: %+v", s)
	require.Equal(t, s.Opened, s.Released, "handles opened and released differ: %+v", s)
	require.Zero(t, s.BytesOutstanding)
}

func TestAttempt(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 4}
		res := h.Attempt(ft, nil)
		require.Equal(t, Rejected, res.Outcome)
		require.ErrorIs(t, res.Err, ErrTooShort)
		require.Zero(t, ft.opened)
		require.Equal(t, Stats{}, h.Stats())

		res = h.Attempt(&fakeTarget{}, []byte{})
		require.Equal(t, Rejected, res.Outcome)
		require.ErrorIs(t, res.Err, ErrTooShort)
	})

	t.Run("too short", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 4}
		res := h.Attempt(ft, []byte("FFF"))
		require.Equal(t, Rejected, res.Outcome)
		require.ErrorIs(t, res.Err, ErrTooShort)
		require.Zero(t, ft.opened)
		require.Equal(t, Stats{}, h.Stats())
	})

	t.Run("succeeded", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 1, scratch: 64}
		res := h.Attempt(ft, []byte("FABC"))
		require.Equal(t, Succeeded, res.Outcome)
		require.NoError(t, res.Err)
		require.Equal(t, 4, res.Steps)
		require.Equal(t, 1, ft.opened)
		require.Equal(t, 1, ft.released)
		requireBalanced(t, h)
		require.Equal(t, 1, h.Stats().Allocs)
		require.Zero(t, h.Stats().Reclaimed)
	})

	t.Run("header rejected", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 1}
		res := h.Attempt(ft, []byte("XABC"))
		require.Equal(t, Rejected, res.Outcome)
		require.ErrorIs(t, res.Err, ErrHeader)
		require.Contains(t, res.Err.Error(), "missing F")
		require.Equal(t, 1, ft.released)
		requireBalanced(t, h)
	})

	t.Run("open failed", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 1, openErr: errors.New("no")}
		res := h.Attempt(ft, []byte("F"))
		require.Equal(t, Rejected, res.Outcome)
		require.EqualError(t, res.Err, "no")
		require.Zero(t, ft.released)
		requireBalanced(t, h)
	})

	t.Run("open failed with a decoder", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 1, openErr: errors.New("half open"), openPartial: true}
		res := h.Attempt(ft, []byte("F"))
		require.Equal(t, Rejected, res.Outcome)
		require.EqualError(t, res.Err, "half open")
		require.Equal(t, 1, ft.opened)
		require.Equal(t, 1, ft.released)
		requireBalanced(t, h)
		require.Equal(t, 1, h.Stats().Opened)
	})

	t.Run("mid-decode error", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 1, failAt: 3, scratch: 8}
		res := h.Attempt(ft, []byte("FABCDEF"))
		require.Equal(t, Rejected, res.Outcome)
		require.EqualError(t, res.Err, "corrupt at step 3")
		require.Equal(t, 2, res.Steps)
		require.Equal(t, 1, ft.released)
		requireBalanced(t, h)
	})

	t.Run("panic mid-decode", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 1, panicAt: 2, scratch: 8}
		res := h.Attempt(ft, []byte("FABCDEF"))
		require.Equal(t, Aborted, res.Outcome)
		var abortErr *AbortError
		require.True(t, errors.As(res.Err, &abortErr))
		require.Equal(t, "fake", abortErr.Target)
		require.NotEmpty(t, abortErr.Stack)
		// The recovered value is a runtime error, which Unwrap exposes.
		require.NotNil(t, errors.Unwrap(res.Err))
		require.Equal(t, 1, res.Steps)
		require.Equal(t, 1, ft.released)
		requireBalanced(t, h)
	})

	t.Run("panic in open", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 1, openPanic: true}
		var res Result
		require.NotPanics(t, func() { res = h.Attempt(ft, []byte("F")) })
		require.Equal(t, Aborted, res.Outcome)
		requireBalanced(t, h)
	})

	t.Run("panic in release", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 1, panicOnRelease: true, scratch: 8}
		var res Result
		require.NotPanics(t, func() { res = h.Attempt(ft, []byte("FA")) })
		require.Equal(t, Aborted, res.Outcome)
		require.Equal(t, 1, ft.released)
		requireBalanced(t, h)
	})

	t.Run("leaked scratch is reclaimed", func(t *testing.T) {
		h, ft := New(Config{}), &fakeTarget{minLen: 1, leak: true, scratch: 32}
		res := h.Attempt(ft, []byte("FA"))
		require.Equal(t, Succeeded, res.Outcome)
		requireBalanced(t, h)
		require.Equal(t, 1, h.Stats().Reclaimed)
	})

	t.Run("scratch exhausted", func(t *testing.T) {
		h, ft := New(Config{ScratchBudget: 16}), &fakeTarget{minLen: 1, scratch: 17}
		res := h.Attempt(ft, []byte("FA"))
		require.Equal(t, Rejected, res.Outcome)
		require.ErrorIs(t, res.Err, ErrScratchExhausted)
		require.Equal(t, 1, ft.released)
		requireBalanced(t, h)
	})

	t.Run("step limit", func(t *testing.T) {
		h, ft := New(Config{MaxSteps: 50}), &fakeTarget{minLen: 1, endless: true}
		res := h.Attempt(ft, []byte("F"))
		require.Equal(t, Rejected, res.Outcome)
		require.ErrorIs(t, res.Err, ErrStepLimit)
		require.Equal(t, 50, res.Steps)
		requireBalanced(t, h)
	})
}

func TestAttemptNeverMutatesInput(t *testing.T) {
	t.Parallel()

	h := New(Config{})
	for _, data := range testutil.RandomBuffers(7, 200, 64) {
		before := bytes.Clone(data)
		h.Attempt(&fakeTarget{minLen: 1, scratch: 4}, data)
		require.Equal(t, before, data)
	}
	requireBalanced(t, h)
}

func TestAttemptRandomFailures(t *testing.T) {
	t.Parallel()

	h := New(Config{MaxSteps: 100})
	bufs := testutil.WithPrefix([]byte("F"), 11, 2000, 32)
	counts := map[Outcome]int{}
	for i, data := range bufs {
		ft := &fakeTarget{minLen: 1, scratch: i % 32, panicAt: i % 5, failAt: i % 7, leak: i%3 == 0}
		var res Result
		require.NotPanics(t, func() { res = h.Attempt(ft, data) })
		counts[res.Outcome]++
		require.Equal(t, ft.opened, ft.released)
	}
	requireBalanced(t, h)
	assert.NotZero(t, counts[Succeeded])
	assert.NotZero(t, counts[Rejected])
	assert.NotZero(t, counts[Aborted])
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "rejected", Rejected.String())
	require.Equal(t, "succeeded", Succeeded.String())
	require.Equal(t, "aborted", Aborted.String())
	require.Equal(t, "unknown", Outcome(42).String())
}
