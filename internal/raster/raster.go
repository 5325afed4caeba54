// Package raster adapts an image decoding library to decodefuzz.Target. A format supplies its
// signature check and the library's DecodeConfig and Decode functions; raster supplies the
// header check, pixel cap, scratch row and the row-by-row walk.
package raster

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/getlantern/golog"

	"github.com/getlantern/decodefuzz"
	"github.com/getlantern/decodefuzz/internal/scan"
	"github.com/getlantern/decodefuzz/internal/source"
)

var log = golog.LoggerFor("decodefuzz.raster")

var (
	// ErrSignature is returned by the header check when the magic bytes do not match.
	ErrSignature = errors.New("bad signature")

	// ErrTooLarge is returned by the header check when the declared image exceeds MaxPixels.
	ErrTooLarge = errors.New("image too large")
)

// Format describes an image format backed by a decoding library.
type Format struct {
	Name string

	// HeaderLen is the number of leading bytes Signature inspects.
	HeaderLen int

	// Signature reports whether the first HeaderLen bytes carry the format's magic.
	Signature func(header []byte) bool

	// Check optionally validates the layout of the whole input before DecodeConfig sees it. It
	// guards against structures whose decoding cost is not bounded by the declared image size.
	Check func(data []byte, cfg decodefuzz.Config) error

	DecodeConfig func(io.Reader) (image.Config, error)

	// Decode returns every frame in the input. Single-image formats return one frame.
	Decode func(io.Reader) ([]image.Image, error)
}

// Single adapts a single-image decode function for use as Format.Decode.
func Single(decode func(io.Reader) (image.Image, error)) func(io.Reader) ([]image.Image, error) {
	return func(r io.Reader) ([]image.Image, error) {
		img, err := decode(r)
		if err != nil {
			return nil, err
		}
		return []image.Image{img}, nil
	}
}

// Target returns the decodefuzz.Target for the format.
func (f *Format) Target() decodefuzz.Target {
	return target{f}
}

type target struct {
	f *Format
}

func (t target) Name() string { return t.f.Name }

func (t target) MinHeaderLen() int { return t.f.HeaderLen }

func (t target) Open(data []byte, scope *decodefuzz.Scope) (decodefuzz.Decoder, error) {
	return &decoder{f: t.f, data: data, scope: scope}, nil
}

type decoder struct {
	f     *Format
	data  []byte
	scope *decodefuzz.Scope

	cfg    image.Config
	row    []byte
	frames []image.Image
	frame  int
	rows   *scan.Rows
	src    *source.Reader
}

// reader returns a fresh reader positioned at the start of the input, with the signature bytes
// replayed as the head.
func (d *decoder) reader() *source.Reader {
	d.src = source.New(d.data, d.f.HeaderLen)
	return d.src
}

func (d *decoder) CheckHeader() error {
	if !d.f.Signature(d.data[:d.f.HeaderLen]) {
		return ErrSignature
	}
	if d.f.Check != nil {
		if err := d.f.Check(d.data, d.scope.Config()); err != nil {
			return err
		}
	}
	cfg, err := d.f.DecodeConfig(d.reader())
	if err != nil {
		return err
	}
	if cfg.Width < 0 || cfg.Height < 0 {
		return fmt.Errorf("negative dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if limit := d.scope.Config().MaxPixels; int64(cfg.Width)*int64(cfg.Height) > int64(limit) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, limit)
	}
	row, err := d.scope.Alloc(scan.RowBytes(cfg.Width, cfg.ColorModel))
	if err != nil {
		return err
	}
	d.cfg, d.row = cfg, row
	return nil
}

func (d *decoder) Step() (bool, error) {
	if d.frames == nil {
		frames, err := d.f.Decode(d.reader())
		if err != nil {
			log.Tracef("%s: decode failed at offset %d with %d bytes unread: %v",
				d.f.Name, d.src.Offset(), d.src.Remaining(), err)
			return false, err
		}
		if len(frames) == 0 {
			return true, nil
		}
		d.frames = frames
		d.rows = scan.New(frames[0], d.row)
		return false, nil
	}
	for !d.rows.Next() {
		log.Tracef("%s: walked %d rows of frame %d", d.f.Name, d.rows.Y(), d.frame)
		d.frame++
		if d.frame >= len(d.frames) {
			return true, nil
		}
		d.rows = scan.New(d.frames[d.frame], d.row)
	}
	return false, nil
}

func (d *decoder) Release() {
	d.scope.Free(d.row)
	d.row, d.frames, d.rows, d.src = nil, nil, nil, nil
}
