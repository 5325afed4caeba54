package gif

import (
	"encoding/binary"
	"fmt"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/internal/raster"
)

const (
	sExtension       = 0x21
	sImageDescriptor = 0x2c
	sTrailer         = 0x3b

	fColorTable     = 0x80
	fColorTableBits = 0x07

	screenDescriptorEnd = 13
)

// checkFrames walks the block structure without decoding any image data and sums the area of
// every frame. DecodeAll allocates all frames at once, so their total must fit in MaxPixels.
// Malformed structure ends the walk early and is left for the decoder to report.
func checkFrames(data []byte, cfg decodefuzz.Config) error {
	if len(data) < screenDescriptorEnd {
		return nil
	}
	p := screenDescriptorEnd
	if flags := data[10]; flags&fColorTable != 0 {
		p += 3 << (flags&fColorTableBits + 1)
	}

	var frames, total int64
	for p < len(data) {
		switch data[p] {
		case sExtension:
			p = skipSubBlocks(data, p+2)
		case sImageDescriptor:
			if p+10 > len(data) {
				return nil
			}
			w := int64(binary.LittleEndian.Uint16(data[p+5:]))
			h := int64(binary.LittleEndian.Uint16(data[p+7:]))
			frames++
			total += w * h
			if total > int64(cfg.MaxPixels) {
				return fmt.Errorf("%w: %d frames hold more than %d pixels", raster.ErrTooLarge, frames, cfg.MaxPixels)
			}
			flags := data[p+9]
			p += 10
			if flags&fColorTable != 0 {
				p += 3 << (flags&fColorTableBits + 1)
			}
			// LZW minimum code size, then the image data.
			p = skipSubBlocks(data, p+1)
		default:
			return nil
		}
	}
	return nil
}

// skipSubBlocks returns the position after the zero-length block terminating the sequence of
// sub-blocks starting at p, or len(data) if it is missing.
func skipSubBlocks(data []byte, p int) int {
	for p < len(data) {
		n := int(data[p])
		p++
		if n == 0 {
			return p
		}
		p += n
	}
	return len(data)
}
