// Package scan walks a decoded image one row at a time, copying each row into a caller-owned
// scratch buffer. Pulling every pixel through the image's accessors exercises the decoder's
// output paths much like reading scanlines out of a C decoder does.
package scan

import (
	"image"
	"image/color"
)

// BytesPerPixel is the width of one pixel in a row buffer for the given color model: 8 bytes for
// 16-bit-per-channel models and 4 bytes otherwise.
func BytesPerPixel(m color.Model) int {
	switch m {
	case color.RGBA64Model, color.NRGBA64Model, color.Gray16Model, color.Alpha16Model:
		return 8
	default:
		return 4
	}
}

// RowBytes is the size of a row buffer for an image of the given width and color model.
func RowBytes(width int, m color.Model) int {
	if width <= 0 {
		return 0
	}
	return width * BytesPerPixel(m)
}

// Rows iterates over the rows of an image.
type Rows struct {
	img  image.Image
	b    image.Rectangle
	y    int
	row  []byte
	wide bool
}

// New prepares a walk of img which writes each row into row. Pixels which do not fit in row are
// visited but not stored.
func New(img image.Image, row []byte) *Rows {
	b := img.Bounds()
	return &Rows{
		img:  img,
		b:    b,
		y:    b.Min.Y,
		row:  row,
		wide: BytesPerPixel(img.ColorModel()) == 8,
	}
}

// Next copies the next row into the row buffer. It returns false when all rows have been visited.
func (r *Rows) Next() bool {
	if r.y >= r.b.Max.Y {
		return false
	}
	i := 0
	for x := r.b.Min.X; x < r.b.Max.X; x++ {
		cr, cg, cb, ca := r.img.At(x, r.y).RGBA()
		if r.wide {
			i += put16(r.row[i:], cr, cg, cb, ca)
		} else {
			i += put8(r.row[i:], cr, cg, cb, ca)
		}
	}
	r.y++
	return true
}

// Y is the number of rows visited so far.
func (r *Rows) Y() int { return r.y - r.b.Min.Y }

func put8(b []byte, r, g, bl, a uint32) int {
	if len(b) < 4 {
		return 0
	}
	b[0], b[1], b[2], b[3] = uint8(r>>8), uint8(g>>8), uint8(bl>>8), uint8(a>>8)
	return 4
}

func put16(b []byte, r, g, bl, a uint32) int {
	if len(b) < 8 {
		return 0
	}
	b[0], b[1] = uint8(r>>8), uint8(r)
	b[2], b[3] = uint8(g>>8), uint8(g)
	b[4], b[5] = uint8(bl>>8), uint8(bl)
	b[6], b[7] = uint8(a>>8), uint8(a)
	return 8
}
