package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/corpus"
	"github.com/getlantern/decodefuzz/drivers"
	"github.com/getlantern/decodefuzz/internal/testutil"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	samples, err := corpus.Samples()
	require.NoError(t, err)
	for _, s := range samples {
		require.NoError(t, corpus.Write(dir, s.Target, s.Name, s.Data))
		require.NoError(t, corpus.Write(dir, s.Target, s.Name+"-short", corpus.Truncate(s.Data, 10)))
	}
	return dir
}

func TestLoadInputs(t *testing.T) {
	dir := writeCorpus(t)
	samples, err := corpus.Samples()
	require.NoError(t, err)

	inputs, err := loadInputs(dir, "")
	require.NoError(t, err)
	require.Len(t, inputs, 2*len(samples))
	for _, in := range inputs {
		require.Equal(t, filepath.Base(filepath.Dir(in.path)), in.target.Name())
	}

	inputs, err = loadInputs(dir, "png")
	require.NoError(t, err)
	require.Len(t, inputs, 2*len(samples))
	for _, in := range inputs {
		require.Equal(t, "png", in.target.Name())
	}

	file := filepath.Join(dir, "gif", "two-frames")
	inputs, err = loadInputs(file, "")
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	require.Equal(t, "gif", inputs[0].target.Name())

	inputs, err = loadInputs(file, allTargets)
	require.NoError(t, err)
	require.Len(t, inputs, len(drivers.Targets))

	// A single target's directory, named after the target or not.
	inputs, err = loadInputs(filepath.Join(dir, "png"), "")
	require.NoError(t, err)
	require.NotEmpty(t, inputs)
	for _, in := range inputs {
		require.Equal(t, "png", in.target.Name())
	}
	crashers := filepath.Join(t.TempDir(), "crashers")
	require.NoError(t, os.Mkdir(crashers, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(crashers, "c0ffee"), []byte("GIF89a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(crashers, "c0ffee.output"), []byte("panic"), 0644))
	inputs, err = loadInputs(crashers, "gif")
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	require.Equal(t, "gif", inputs[0].target.Name())
	_, err = loadInputs(crashers, "")
	require.Error(t, err)

	_, err = loadInputs(file, "nope")
	require.Error(t, err)
	_, err = loadInputs(filepath.Join(dir, "missing"), "")
	require.Error(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "unknown-format"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unknown-format", "x"), []byte("x"), 0644))
	_, err = loadInputs(dir, "")
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, decodefuzz.Config{}, cfg)

	dir := t.TempDir()
	path := filepath.Join(dir, "limits.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_pixels = 10\nmax_steps = 99\n"), 0644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, decodefuzz.Config{MaxPixels: 10, MaxSteps: 99}, cfg)

	require.NoError(t, os.WriteFile(path, []byte("max_pixel = 10\n"), 0644))
	_, err = loadConfig(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("max_pixels = \"ten\"\n"), 0644))
	_, err = loadConfig(path)
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := writeCorpus(t)
	out := testutil.NewSafeLogger(t)

	app := newApp()
	app.Writer = out
	require.NoError(t, app.Run([]string{"test-input", "--path", dir, "--parallel", "2", "--verbose"}))
	for _, name := range drivers.Names() {
		require.Contains(t, out.String(), name)
	}
	require.Contains(t, out.String(), "succeeded after")
	require.Contains(t, out.String(), "gradient-short [tiff]: rejected after")
	require.NotContains(t, out.String(), "-short [tiff]: succeeded")

	configPath := filepath.Join(t.TempDir(), "limits.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("max_pixels = 1\n"), 0644))
	app = newApp()
	app.Writer = testutil.NewSafeLogger(t)
	require.NoError(t, app.Run([]string{"test-input", "--path", filepath.Join(dir, "png"), "--target", "png", "--config", configPath}))

	app = newApp()
	app.Writer = testutil.NewSafeLogger(t)
	require.Error(t, app.Run([]string{"test-input", "--path", t.TempDir()}))
}

// stallTarget takes a second to finish its only decode step.
type stallTarget struct{}

func (stallTarget) Name() string      { return "stall" }
func (stallTarget) MinHeaderLen() int { return 1 }

func (stallTarget) Open(_ []byte, _ *decodefuzz.Scope) (decodefuzz.Decoder, error) {
	return stallDecoder{}, nil
}

type stallDecoder struct{}

func (stallDecoder) CheckHeader() error { return nil }

func (stallDecoder) Step() (bool, error) {
	time.Sleep(time.Second)
	return true, nil
}

func (stallDecoder) Release() {}

func TestReplayTimeout(t *testing.T) {
	samples, err := corpus.Samples()
	require.NoError(t, err)
	s, _ := corpus.Lookup(samples, "png")
	png, _ := drivers.Lookup("png")

	inputs := []input{
		{png, "ok", s.Data},
		{stallTarget{}, "slow", []byte{1}},
	}
	h := decodefuzz.New(decodefuzz.Config{})
	results, err := replay(context.Background(), h, inputs, 2, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.False(t, results[0].timeout)
	require.Equal(t, decodefuzz.Succeeded, results[0].res.Outcome)
	require.True(t, results[1].timeout)

	out := testutil.NewSafeLogger(t)
	require.Equal(t, 1, summarize(out, results, false))
	require.Contains(t, out.String(), "slow [stall]: timed out")
}
