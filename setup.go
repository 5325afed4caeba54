package decodefuzz

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/text/encoding/ianaindex"
)

var (
	setupOnce      sync.Once
	defaultHarness *Harness
	charsetReader  func(label string, input io.Reader) (io.Reader, error)
)

// Setup performs the process-wide configuration used by the Fuzz entry points: it creates the
// default Harness and installs the charset resolver used for XML encoding declarations. Setup is
// safe to call any number of times, from any goroutine; only the first call has an effect.
func Setup() {
	setupOnce.Do(func() {
		defaultHarness = New(Config{})
		charsetReader = ianaCharsetReader
	})
}

// Default returns the Harness installed by Setup, calling Setup if necessary.
func Default() *Harness {
	Setup()
	return defaultHarness
}

// Attempt decodes data once with t using the default Harness.
func Attempt(t Target, data []byte) Outcome {
	return Default().Attempt(t, data).Outcome
}

// CharsetReader returns the resolver installed by Setup, or nil if Setup has not run. The
// signature matches encoding/xml.Decoder.CharsetReader.
func CharsetReader() func(label string, input io.Reader) (io.Reader, error) {
	Setup()
	return charsetReader
}

func ianaCharsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
