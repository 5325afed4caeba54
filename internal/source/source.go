// Package source provides the read shim through which decoders consume an in-memory fuzz input.
//
// A header check usually inspects the first few bytes of the input before any decoder sees it.
// Reader replays those inspected bytes ahead of the rest of the buffer, so the decoder starts at
// offset zero as if nothing had been read, and it never hands out bytes past the end of the input.
package source

import (
	"errors"
	"io"
)

var errNegativeOffset = errors.New("source: negative offset")

// Reader is an io.Reader, io.ByteReader and io.ReaderAt over a head (already inspected) followed
// by a body. Implementing io.ByteReader stops image decoders from wrapping the reader in a
// bufio.Reader, and implementing io.ReaderAt stops them from buffering the input themselves.
type Reader struct {
	head []byte
	body []byte
	off  int

	// The whole head and body, for ReadAt.
	parts [2][]byte
}

// Wrap creates a Reader which yields head and then body.
func Wrap(head, body []byte) *Reader {
	return &Reader{head: head, body: body, parts: [2][]byte{head, body}}
}

// New creates a Reader over data, treating the first inspected bytes as the head. inspected is
// clamped to len(data).
func New(data []byte, inspected int) *Reader {
	if inspected > len(data) {
		inspected = len(data)
	}
	if inspected < 0 {
		inspected = 0
	}
	return Wrap(data[:inspected], data[inspected:])
}

// Read first consumes the head. If anything was read from the head it returns immediately rather
// than continuing into the body, matching a single read callback invocation.
func (r *Reader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n := copy(b, r.head)
	r.head = r.head[n:]
	if n > 0 {
		r.off += n
		return n, nil
	}
	if len(r.body) == 0 {
		return 0, io.EOF
	}
	n = copy(b, r.body)
	r.body = r.body[n:]
	r.off += n
	return n, nil
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadAt implements io.ReaderAt over the head followed by the body. It does not move the offset
// used by Read, and returns io.EOF for any read reaching past the end of the input.
func (r *Reader) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	n := 0
	for _, part := range r.parts {
		if off >= int64(len(part)) {
			off -= int64(len(part))
			continue
		}
		n += copy(b[n:], part[off:])
		off = 0
		if n == len(b) {
			return n, nil
		}
	}
	return n, io.EOF
}

// Offset is the number of bytes handed out so far.
func (r *Reader) Offset() int { return r.off }

// Remaining is the number of bytes not yet handed out.
func (r *Reader) Remaining() int { return len(r.head) + len(r.body) }
