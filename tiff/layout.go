package tiff

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/getlantern/decodefuzz"
)

// ErrLayout is returned by the header check when the first IFD, one of its values, or the image
// data it points at lies outside the input.
var ErrLayout = errors.New("tiff layout out of bounds")

const (
	tStripOffsets    = 273
	tStripByteCounts = 279
	tTileOffsets     = 324
	tTileByteCounts  = 325

	dtShort = 3
	dtLong  = 4

	ifdEntryLen = 12
)

// dataSizes is the size of one value of each field type, indexed by type.
var dataSizes = [...]uint64{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8}

// checkLayout walks the first IFD. The entries, every value stored outside an entry and every
// strip or tile must lie within data. Entries of unknown type are left to the decoder.
func checkLayout(data []byte, _ decodefuzz.Config) error {
	var bo binary.ByteOrder = binary.LittleEndian
	if data[0] == 'M' {
		bo = binary.BigEndian
	}
	size := uint64(len(data))

	off := uint64(bo.Uint32(data[4:8]))
	if off < 8 || off+2 > size {
		return fmt.Errorf("%w: IFD at %d in %d bytes", ErrLayout, off, size)
	}
	n := uint64(bo.Uint16(data[off:]))
	if off+2+ifdEntryLen*n+4 > size {
		return fmt.Errorf("%w: %d entries at %d in %d bytes", ErrLayout, n, off, size)
	}

	var offsets, counts []uint64
	for i := uint64(0); i < n; i++ {
		e := data[off+2+ifdEntryLen*i:]
		tag, typ, count := bo.Uint16(e), bo.Uint16(e[2:]), uint64(bo.Uint32(e[4:]))
		if typ == 0 || int(typ) >= len(dataSizes) {
			continue
		}
		raw := e[8:12]
		if l := dataSizes[typ] * count; l > 4 {
			at := uint64(bo.Uint32(e[8:]))
			if at+l > size {
				return fmt.Errorf("%w: tag %d value at %d+%d in %d bytes", ErrLayout, tag, at, l, size)
			}
			raw = data[at : at+l]
		} else {
			raw = raw[:l]
		}
		switch tag {
		case tStripOffsets, tTileOffsets:
			offsets = uints(bo, typ, raw)
		case tStripByteCounts, tTileByteCounts:
			counts = uints(bo, typ, raw)
		}
	}

	for i := 0; i < len(offsets) && i < len(counts); i++ {
		if offsets[i]+counts[i] > size {
			return fmt.Errorf("%w: strip %d at %d+%d in %d bytes", ErrLayout, i, offsets[i], counts[i], size)
		}
	}
	return nil
}

func uints(bo binary.ByteOrder, typ uint16, raw []byte) []uint64 {
	var vals []uint64
	switch typ {
	case dtShort:
		for i := 0; i+2 <= len(raw); i += 2 {
			vals = append(vals, uint64(bo.Uint16(raw[i:])))
		}
	case dtLong:
		for i := 0; i+4 <= len(raw); i += 4 {
			vals = append(vals, uint64(bo.Uint32(raw[i:])))
		}
	}
	return vals
}
