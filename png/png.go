// Package png drives the image/png decoder.
package png

import (
	"bytes"
	"image/png"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/internal/raster"
)

// signature is the fixed 8-byte PNG file signature.
var signature = []byte("\x89PNG\r\n\x1a\n")

var format = &raster.Format{
	Name:         "png",
	HeaderLen:    len(signature),
	Signature:    func(header []byte) bool { return bytes.Equal(header, signature) },
	DecodeConfig: png.DecodeConfig,
	Decode:       raster.Single(png.Decode),
}

// Target decodes PNG images, interlaced or not, then reads them back row by row. The header check
// compares the signature and reads the IHDR chunk.
var Target = format.Target()

// Fuzz is the entrypoint for go-fuzz. It always returns 0.
func Fuzz(data []byte) int {
	decodefuzz.Attempt(Target, data)
	return 0
}
