// Package targettest holds the checks every decode target must pass. Target packages call Run
// from their tests.
package targettest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/corpus"
	"github.com/getlantern/decodefuzz/internal/testutil"
)

// Options tune Run for a target.
type Options struct {
	// Prefix is prepended to random buffers so that some get past the signature check.
	Prefix []byte

	// Mutations is the number of corrupted variants tried per sample.
	Mutations int
}

// RequireBalanced checks that every allocation and every handle of h was released.
func RequireBalanced(t *testing.T, h *decodefuzz.Harness) {
	t.Helper()
	s := h.Stats()
	require.Equal(t, s.Allocs, s.Frees, "allocations and frees differ: %+v", s)
	require.Equal(t, s.Opened, s.Released, "handles opened and released differ: %+v", s)
	require.Zero(t, s.BytesOutstanding)
}

// Samples returns the corpus samples for target.
func Samples(t testing.TB, target decodefuzz.Target) []corpus.Sample {
	t.Helper()
	all, err := corpus.Samples()
	require.NoError(t, err)
	var samples []corpus.Sample
	for _, s := range all {
		if s.Target == target.Name() {
			samples = append(samples, s)
		}
	}
	require.NotEmpty(t, samples, "no samples for %s", target.Name())
	return samples
}

// AddSeeds adds the corpus samples for target to the seed corpus of f.
func AddSeeds(f *testing.F, target decodefuzz.Target) {
	for _, s := range Samples(f, target) {
		f.Add(s.Data)
	}
}

// Run exercises target with the standard scenarios: empty input, too-short input, valid samples,
// magic-only and truncated samples, and many corrupted and random buffers.
func Run(t *testing.T, target decodefuzz.Target, opts Options) {
	samples := Samples(t, target)
	if opts.Mutations == 0 {
		opts.Mutations = 500
	}

	t.Run("empty", func(t *testing.T) {
		h := decodefuzz.New(decodefuzz.Config{})
		res := h.Attempt(target, nil)
		require.Equal(t, decodefuzz.Rejected, res.Outcome)
		require.ErrorIs(t, res.Err, decodefuzz.ErrTooShort)
		require.Zero(t, h.Stats().Opened)
	})

	t.Run("too short", func(t *testing.T) {
		n := target.MinHeaderLen() - 1
		if n < 1 {
			t.Skip("every non-empty input is long enough")
		}
		h := decodefuzz.New(decodefuzz.Config{})
		res := h.Attempt(target, samples[0].Data[:n])
		require.Equal(t, decodefuzz.Rejected, res.Outcome)
		require.ErrorIs(t, res.Err, decodefuzz.ErrTooShort)
		require.Equal(t, decodefuzz.Stats{}, h.Stats())
	})

	t.Run("valid", func(t *testing.T) {
		h := decodefuzz.New(decodefuzz.Config{})
		for _, s := range samples {
			res := h.Attempt(target, s.Data)
			require.Equal(t, decodefuzz.Succeeded, res.Outcome, "%s: %v", s.Name, res.Err)
			require.NoError(t, res.Err)
			require.Greater(t, res.Steps, 0)
		}
		RequireBalanced(t, h)
		require.Equal(t, len(samples), h.Stats().Opened)
		require.Zero(t, h.Stats().Reclaimed)
	})

	t.Run("magic only", func(t *testing.T) {
		h := decodefuzz.New(decodefuzz.Config{})
		for _, s := range samples {
			n := 8
			if target.MinHeaderLen() > n {
				n = target.MinHeaderLen()
			}
			res := h.Attempt(target, s.Data[:n])
			require.Equal(t, decodefuzz.Rejected, res.Outcome, s.Name)
		}
		RequireBalanced(t, h)
	})

	t.Run("truncated", func(t *testing.T) {
		h := decodefuzz.New(decodefuzz.Config{})
		for _, s := range samples {
			var res decodefuzz.Result
			require.NotPanics(t, func() { res = h.Attempt(target, corpus.Truncate(s.Data, 10)) })
			require.NotEqual(t, decodefuzz.Succeeded, res.Outcome, s.Name)
			require.Error(t, res.Err)
		}
		RequireBalanced(t, h)
	})

	t.Run("corrupted", func(t *testing.T) {
		h := decodefuzz.New(decodefuzz.Config{})
		counts := map[decodefuzz.Outcome]int{}
		for i, s := range samples {
			for _, m := range corpus.Mutations(s.Data, int64(i), opts.Mutations) {
				before := bytes.Clone(m)
				var res decodefuzz.Result
				require.NotPanics(t, func() { res = h.Attempt(target, m) })
				require.Equal(t, before, m, "input was mutated")
				counts[res.Outcome]++
			}
		}
		RequireBalanced(t, h)
		assert.NotZero(t, counts[decodefuzz.Rejected])
		t.Logf("%s corrupted outcomes: %v", target.Name(), counts)
	})

	t.Run("random", func(t *testing.T) {
		h := decodefuzz.New(decodefuzz.Config{})
		bufs := testutil.RandomBuffers(1, 500, 256)
		if opts.Prefix != nil {
			bufs = append(bufs, testutil.WithPrefix(opts.Prefix, 2, 500, 256)...)
		}
		for _, b := range bufs {
			require.NotPanics(t, func() { h.Attempt(target, b) })
		}
		RequireBalanced(t, h)
	})
}
