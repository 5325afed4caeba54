// Package webp drives the golang.org/x/image/webp decoder (VP8 and VP8L).
package webp

import (
	"bytes"

	"golang.org/x/image/webp"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/internal/raster"
)

var format = &raster.Format{
	Name: "webp",
	// "RIFF", the little-endian chunk size, "WEBP".
	HeaderLen: 12,
	Signature: func(header []byte) bool {
		return bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WEBP"))
	},
	DecodeConfig: webp.DecodeConfig,
	Decode:       raster.Single(webp.Decode),
}

// Target decodes WebP images and reads them back row by row.
var Target = format.Target()

// Fuzz is the entrypoint for go-fuzz. It always returns 0.
func Fuzz(data []byte) int {
	decodefuzz.Attempt(Target, data)
	return 0
}
