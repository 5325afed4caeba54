// Package tiff drives the golang.org/x/image/tiff decoder.
package tiff

import (
	"bytes"

	"golang.org/x/image/tiff"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/internal/raster"
)

var (
	littleEndian = []byte("II\x2a\x00")
	bigEndian    = []byte("MM\x00\x2a")
)

var format = &raster.Format{
	Name: "tiff",
	// Byte order, magic and the offset of the first IFD.
	HeaderLen: 8,
	Signature: func(header []byte) bool {
		return bytes.HasPrefix(header, littleEndian) || bytes.HasPrefix(header, bigEndian)
	},
	Check:        checkLayout,
	DecodeConfig: tiff.DecodeConfig,
	Decode:       raster.Single(tiff.Decode),
}

// Target decodes TIFF images and reads them back row by row.
var Target = format.Target()

// Fuzz is the entrypoint for go-fuzz. It always returns 0.
func Fuzz(data []byte) int {
	decodefuzz.Attempt(Target, data)
	return 0
}
