package corpus

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Sample is a minimal, valid encoding for one target.
type Sample struct {
	Target string
	Name   string
	Data   []byte
}

// webpLossless is a 1x1 VP8L image. x/image has no WebP encoder, so it is embedded.
const webpLossless = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

const (
	xmlDoc = `<?xml version="1.0" encoding="UTF-8"?>
<catalog xmlns:x="urn:example">
  <item id="1" x:kind="a">first &amp; only</item>
  <!-- comment -->
  <empty/>
  <![CDATA[raw <data>]]>
</catalog>
`
	// The body is "café" in ISO-8859-1, which needs the charset resolver.
	xmlLatin1 = "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><name>caf\xe9</name>"

	htmlish = "<html><body><p>one<br>two &nbsp; three</p><img src=x></body></html>"
)

// gradient returns a small image with some variation in every channel, so that lossy encoders
// produce non-trivial streams.
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x + y) * 127 / (w + h)),
				A: 0xff,
			})
		}
	}
	return img
}

// Samples builds one or more valid inputs per target using the standard library and x/image
// encoders.
func Samples() ([]Sample, error) {
	img := gradient(16, 8)
	var samples []Sample

	encode := func(target, name string, enc func(*bytes.Buffer) error) error {
		buf := new(bytes.Buffer)
		if err := enc(buf); err != nil {
			return fmt.Errorf("failed to encode %s sample %s: %w", target, name, err)
		}
		samples = append(samples, Sample{Target: target, Name: name, Data: buf.Bytes()})
		return nil
	}

	steps := []struct {
		target, name string
		enc          func(*bytes.Buffer) error
	}{
		{"jpeg", "gradient-q75", func(b *bytes.Buffer) error {
			return jpeg.Encode(b, img, &jpeg.Options{Quality: 75})
		}},
		{"jpeg", "gray-q10", func(b *bytes.Buffer) error {
			gray := image.NewGray(image.Rect(0, 0, 9, 9))
			return jpeg.Encode(b, gray, &jpeg.Options{Quality: 10})
		}},
		{"png", "gradient", func(b *bytes.Buffer) error { return png.Encode(b, img) }},
		{"png", "paletted", func(b *bytes.Buffer) error {
			p := image.NewPaletted(image.Rect(0, 0, 5, 3), palette.Plan9)
			return png.Encode(b, p)
		}},
		{"png", "gray16", func(b *bytes.Buffer) error {
			return png.Encode(b, image.NewGray16(image.Rect(0, 0, 3, 3)))
		}},
		{"gif", "two-frames", func(b *bytes.Buffer) error {
			a := image.NewPaletted(image.Rect(0, 0, 4, 4), palette.WebSafe)
			c := image.NewPaletted(image.Rect(0, 0, 4, 4), palette.WebSafe)
			c.SetColorIndex(1, 1, 7)
			return gif.EncodeAll(b, &gif.GIF{Image: []*image.Paletted{a, c}, Delay: []int{0, 0}})
		}},
		{"tiff", "gradient", func(b *bytes.Buffer) error { return tiff.Encode(b, img, nil) }},
		{"tiff", "deflate", func(b *bytes.Buffer) error {
			return tiff.Encode(b, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}},
		{"bmp", "gradient", func(b *bytes.Buffer) error { return bmp.Encode(b, img) }},
	}
	for _, s := range steps {
		if err := encode(s.target, s.name, s.enc); err != nil {
			return nil, err
		}
	}

	webp, err := base64.StdEncoding.DecodeString(webpLossless)
	if err != nil {
		return nil, err
	}
	samples = append(samples,
		Sample{Target: "webp", Name: "lossless-1x1", Data: webp},
		Sample{Target: "xml", Name: "catalog", Data: []byte(xmlDoc)},
		Sample{Target: "xml", Name: "latin1", Data: []byte(xmlLatin1)},
		Sample{Target: "xml-raw", Name: "catalog", Data: []byte(xmlDoc)},
		Sample{Target: "xml-lenient", Name: "htmlish", Data: []byte(htmlish)},
		Sample{Target: "xml-tree", Name: "catalog", Data: []byte(xmlDoc)},
	)
	return samples, nil
}

// Lookup returns the first sample for target.
func Lookup(samples []Sample, target string) (Sample, bool) {
	for _, s := range samples {
		if s.Target == target {
			return s, true
		}
	}
	return Sample{}, false
}
