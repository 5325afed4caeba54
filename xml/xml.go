// Package xml drives the encoding/xml parser.
//
// The parser can be exercised four ways, and the Fuzz entry point lets the first input byte pick
// one of them (selector value modulo 4):
//
//	0  Tokens    strict Decoder.Token stream
//	1  Raw       Decoder.RawToken stream, depth checked but no namespace or end-tag matching
//	2  Lenient   Strict=false with HTML auto-close elements and HTML entities
//	3  Tree      Decoder.Decode into a generic element tree
//
// The remaining bytes are the document.
package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"

	"github.com/getlantern/decodefuzz"
)

// Mode selects how the document is parsed.
type Mode int

const (
	Tokens Mode = iota
	Raw
	Lenient
	Tree
)

func (m Mode) String() string {
	switch m {
	case Tokens:
		return "xml"
	case Raw:
		return "xml-raw"
	case Lenient:
		return "xml-lenient"
	case Tree:
		return "xml-tree"
	default:
		return "xml-unknown"
	}
}

// Modes is the selector table used by Fuzz.
var Modes = decodefuzz.Dispatch[decodefuzz.Target]{
	Tokens.Target(),
	Raw.Target(),
	Lenient.Target(),
	Tree.Target(),
}

// Target parses a plain document as a strict token stream.
var Target = Tokens.Target()

// Selected is a target which reads its mode from the first input byte, per Modes.
var Selected decodefuzz.Target = selected{}

// Fuzz is the entrypoint for go-fuzz. The first byte selects the mode. It always returns 0.
func Fuzz(data []byte) int {
	decodefuzz.Attempt(Selected, data)
	return 0
}

// ErrNotMarkup is returned by the header check when the document does not start with markup.
var ErrNotMarkup = errors.New("document does not start with '<'")

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Target returns the decodefuzz.Target which parses documents in mode m.
func (m Mode) Target() decodefuzz.Target { return target{m} }

type target struct {
	mode Mode
}

func (t target) Name() string { return t.mode.String() }

// MinHeaderLen is one byte: the shortest well-formed document is "<a/>" but any single byte can be
// judged by the header check.
func (t target) MinHeaderLen() int { return 1 }

func (t target) Open(data []byte, scope *decodefuzz.Scope) (decodefuzz.Decoder, error) {
	// The parser works on a private copy so that the caller's buffer is never touched.
	buf, err := scope.Alloc(len(data))
	if err != nil {
		return nil, err
	}
	copy(buf, data)
	return &decoder{mode: t.mode, buf: buf, scope: scope}, nil
}

type selected struct{}

func (selected) Name() string { return "xml-selected" }

func (selected) MinHeaderLen() int { return 2 }

func (selected) Open(data []byte, scope *decodefuzz.Scope) (decodefuzz.Decoder, error) {
	t, doc, _ := Modes.Select(data)
	return t.Open(doc, scope)
}

type decoder struct {
	mode  Mode
	buf   []byte
	scope *decodefuzz.Scope
	dec   *xml.Decoder

	// RawToken does not track nesting, so Raw mode does.
	depth    int
	seenRoot bool
}

// element is a generic tree which accepts any well-formed document.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  []byte     `xml:",chardata"`
	Children []element  `xml:",any"`
}

func (d *decoder) CheckHeader() error {
	doc := bytes.TrimPrefix(d.buf, utf8BOM)
	doc = bytes.TrimLeft(doc, " \t\r\n")
	if len(doc) == 0 || doc[0] != '<' {
		return ErrNotMarkup
	}
	d.dec = xml.NewDecoder(bytes.NewReader(d.buf))
	d.dec.CharsetReader = decodefuzz.CharsetReader()
	if d.mode == Lenient {
		d.dec.Strict = false
		d.dec.AutoClose = xml.HTMLAutoClose
		d.dec.Entity = xml.HTMLEntity
	}
	return nil
}

func (d *decoder) Step() (bool, error) {
	var err error
	switch d.mode {
	case Raw:
		var tok xml.Token
		tok, err = d.dec.RawToken()
		switch tok.(type) {
		case xml.StartElement:
			d.depth++
			d.seenRoot = true
		case xml.EndElement:
			d.depth--
		}
		if err == io.EOF && (d.depth != 0 || !d.seenRoot) {
			return false, io.ErrUnexpectedEOF
		}
	case Tree:
		var root element
		if err = d.dec.Decode(&root); err == nil {
			return true, nil
		}
	default:
		_, err = d.dec.Token()
	}
	if err == io.EOF {
		return true, nil
	}
	return false, err
}

func (d *decoder) Release() {
	d.scope.Free(d.buf)
	d.buf, d.dec = nil, nil
}
