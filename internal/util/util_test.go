package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/getlantern/decodefuzz"
)

// slowTarget decodes in a fixed number of steps, each of which takes delay.
type slowTarget struct {
	delay time.Duration
}

func (slowTarget) Name() string      { return "slow" }
func (slowTarget) MinHeaderLen() int { return 1 }

func (t slowTarget) Open(_ []byte, _ *decodefuzz.Scope) (decodefuzz.Decoder, error) {
	return &slowDecoder{delay: t.delay}, nil
}

type slowDecoder struct {
	delay time.Duration
	steps int
}

func (d *slowDecoder) CheckHeader() error { return nil }

func (d *slowDecoder) Step() (bool, error) {
	time.Sleep(d.delay)
	d.steps++
	return d.steps == 3, nil
}

func (d *slowDecoder) Release() {}

func TestAttemptContext(t *testing.T) {
	t.Parallel()

	doTest := func(t *testing.T, delay time.Duration, expectTimeout bool) {
		t.Helper()
		t.Parallel()

		h := decodefuzz.New(decodefuzz.Config{})
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		res, err := AttemptContext(ctx, h, slowTarget{delay}, []byte{1})
		if expectTimeout {
			require.Error(t, err)
			require.IsType(t, TimeoutError(""), err)
			return
		}
		require.NoError(t, err)
		require.Equal(t, decodefuzz.Succeeded, res.Outcome)
		require.Equal(t, 3, res.Steps)
	}

	t.Run("timeout", func(t *testing.T) { doTest(t, time.Second, true) })
	t.Run("no timeout", func(t *testing.T) { doTest(t, 0, false) })

	t.Run("no deadline", func(t *testing.T) {
		t.Parallel()
		res, err := AttemptContext(context.Background(), decodefuzz.New(decodefuzz.Config{}), slowTarget{}, []byte{1})
		require.NoError(t, err)
		require.Equal(t, decodefuzz.Succeeded, res.Outcome)
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := AttemptContext(ctx, decodefuzz.New(decodefuzz.Config{}), slowTarget{time.Second}, []byte{1})
		require.ErrorIs(t, err, context.Canceled)
	})
}
