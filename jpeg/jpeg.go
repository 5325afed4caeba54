// Package jpeg drives the image/jpeg decoder.
package jpeg

import (
	"bytes"
	"image/jpeg"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/internal/raster"
)

// soi is the start-of-image marker every JPEG stream begins with.
var soi = []byte{0xff, 0xd8}

var format = &raster.Format{
	Name:         "jpeg",
	HeaderLen:    len(soi),
	Signature:    func(header []byte) bool { return bytes.Equal(header, soi) },
	DecodeConfig: jpeg.DecodeConfig,
	Decode:       raster.Single(jpeg.Decode),
}

// Target decodes baseline and progressive JPEG streams, then reads them back row by row.
var Target = format.Target()

// Fuzz is the entrypoint for go-fuzz. It always returns 0.
func Fuzz(data []byte) int {
	decodefuzz.Attempt(Target, data)
	return 0
}
