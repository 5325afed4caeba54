// Package drivers collects every target in one place, for tools which need to look targets up by
// name and for fuzzing all of them from a single entry point.
package drivers

import (
	"sort"

	fuzz "github.com/AdaLogics/go-fuzz-headers"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/bmp"
	"github.com/getlantern/decodefuzz/gif"
	"github.com/getlantern/decodefuzz/jpeg"
	"github.com/getlantern/decodefuzz/png"
	"github.com/getlantern/decodefuzz/tiff"
	"github.com/getlantern/decodefuzz/webp"
	"github.com/getlantern/decodefuzz/xml"
)

// Targets is the selector table used by Fuzz. The order is part of the corpus format: the first
// byte of a stored input selects the entry at that index (modulo the length), so entries may only
// be appended.
var Targets = decodefuzz.Dispatch[decodefuzz.Target]{
	jpeg.Target,
	png.Target,
	gif.Target,
	tiff.Target,
	bmp.Target,
	webp.Target,
	xml.Target,
	xml.Raw.Target(),
	xml.Lenient.Target(),
	xml.Tree.Target(),
}

var byName = func() map[string]decodefuzz.Target {
	m := make(map[string]decodefuzz.Target, len(Targets))
	for _, t := range Targets {
		m[t.Name()] = t
	}
	return m
}()

// Lookup returns the target with the given name.
func Lookup(name string) (decodefuzz.Target, bool) {
	t, ok := byName[name]
	return t, ok
}

// Names lists every target name in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fuzz is the entrypoint for go-fuzz. The first byte selects a target from Targets and the rest of
// the input is handed to it. It always returns 0.
func Fuzz(data []byte) int {
	t, payload, ok := Targets.Select(data)
	if !ok {
		return 0
	}
	decodefuzz.Attempt(t, payload)
	return 0
}

// Knobs are the harness limits carved out of the input by FuzzConfigured.
type Knobs struct {
	Target        int
	MaxPixels     int
	ScratchBudget int
	MaxSteps      int
}

// Config converts the knobs into a harness configuration. Values are folded into ranges which
// keep a single attempt cheap; zero or negative values fall back to the defaults.
func (k Knobs) Config() decodefuzz.Config {
	return decodefuzz.Config{
		MaxPixels:     k.MaxPixels % (1 << 20),
		ScratchBudget: k.ScratchBudget % (4 << 20),
		MaxSteps:      k.MaxSteps % (1 << 16),
	}
}

// FuzzConfigured is an entrypoint for go-fuzz which also fuzzes the harness limits: the target
// selector, the limits and the payload are all consumed from data. It always returns 0.
func FuzzConfigured(data []byte) int {
	c := fuzz.NewConsumer(data)
	var k Knobs
	var err error
	if k.Target, err = c.GetInt(); err != nil {
		return 0
	}
	if k.MaxPixels, err = c.GetInt(); err != nil {
		return 0
	}
	if k.ScratchBudget, err = c.GetInt(); err != nil {
		return 0
	}
	if k.MaxSteps, err = c.GetInt(); err != nil {
		return 0
	}
	payload, err := c.GetBytes()
	if err != nil {
		return 0
	}
	Run(k, payload)
	return 0
}

// Run makes one attempt with the target and limits described by k.
func Run(k Knobs, payload []byte) decodefuzz.Result {
	i := k.Target % len(Targets)
	if i < 0 {
		i += len(Targets)
	}
	return decodefuzz.New(k.Config()).Attempt(Targets[i], payload)
}
