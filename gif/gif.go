// Package gif drives the image/gif decoder, including every frame of an animation.
package gif

import (
	"bytes"
	"image"
	"image/gif"
	"io"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/internal/raster"
)

var (
	gif87a = []byte("GIF87a")
	gif89a = []byte("GIF89a")
)

var format = &raster.Format{
	Name:      "gif",
	HeaderLen: len(gif89a),
	Signature: func(header []byte) bool {
		return bytes.Equal(header, gif87a) || bytes.Equal(header, gif89a)
	},
	Check:        checkFrames,
	DecodeConfig: gif.DecodeConfig,
	Decode:       decodeAll,
}

func decodeAll(r io.Reader) ([]image.Image, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, err
	}
	frames := make([]image.Image, len(g.Image))
	for i, p := range g.Image {
		frames[i] = p
	}
	return frames, nil
}

// Target decodes all frames of a GIF and reads each one back row by row.
var Target = format.Target()

// Fuzz is the entrypoint for go-fuzz. It always returns 0.
func Fuzz(data []byte) int {
	decodefuzz.Attempt(Target, data)
	return 0
}
