// Package bmp drives the golang.org/x/image/bmp decoder.
package bmp

import (
	"golang.org/x/image/bmp"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/internal/raster"
)

var format = &raster.Format{
	Name: "bmp",
	// BITMAPFILEHEADER.
	HeaderLen:    14,
	Signature:    func(header []byte) bool { return header[0] == 'B' && header[1] == 'M' },
	DecodeConfig: bmp.DecodeConfig,
	Decode:       raster.Single(bmp.Decode),
}

// Target decodes BMP images and reads them back row by row.
var Target = format.Target()

// Fuzz is the entrypoint for go-fuzz. It always returns 0.
func Fuzz(data []byte) int {
	decodefuzz.Attempt(Target, data)
	return 0
}
