// Package decodefuzz drives attacker-controlled byte buffers through existing decoders (image,
// XML) exactly once per call and reports what happened, without ever letting malformed input take
// down the process.
//
// Each target format lives in its own subpackage (jpeg, png, gif, tiff, bmp, webp, xml) and
// exposes a Target plus a go-fuzz style Fuzz entry point. This package provides the shape shared
// by all of them: a Decode Attempt which checks the input length, opens a decoder handle, runs the
// header check and the incremental decode loop, and releases the handle and all scratch memory on
// every exit path, including a panic raised inside the decoder.
package decodefuzz

import (
	"github.com/getlantern/golog"
)

var log = golog.LoggerFor("decodefuzz")

// Outcome is the terminal state of a Decode Attempt.
type Outcome int

const (
	// Rejected means the input was too short, failed the header check, or failed mid-decode.
	Rejected Outcome = iota

	// Succeeded means the decoder consumed the input to completion.
	Succeeded

	// Aborted means the decoder raised a fatal signal (a panic) which was intercepted.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Rejected:
		return "rejected"
	case Succeeded:
		return "succeeded"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Target is a format which can be driven by a Decode Attempt.
type Target interface {
	// Name is a short, unique identifier for the target, e.g. "png".
	Name() string

	// MinHeaderLen is the smallest input which could possibly hold the format's header. Shorter
	// inputs are rejected before Open is called.
	MinHeaderLen() int

	// Open creates fresh decoder state for data. The returned Decoder is owned by a single
	// attempt and is never reused. Scratch memory must be acquired through scope. A Decoder
	// returned along with an error is still released.
	Open(data []byte, scope *Scope) (Decoder, error)
}

// Decoder is the per-attempt decoder handle.
type Decoder interface {
	// CheckHeader validates the format signature and header metadata.
	CheckHeader() error

	// Step advances the decode by one unit of work (a row, a token, a frame). It returns true
	// once the input has been decoded to completion.
	Step() (done bool, err error)

	// Release frees everything the decoder acquired. It is called exactly once.
	Release()
}

// Result describes a finished Decode Attempt.
type Result struct {
	Outcome Outcome

	// Err explains a Rejected or Aborted outcome. It is nil when the attempt succeeded.
	Err error

	// Steps is the number of completed Step calls.
	Steps int
}
