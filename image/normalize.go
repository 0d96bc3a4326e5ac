// Package image normalizes user-supplied photos before they are
// attached to a report: decode, EXIF orientation fix, downscale to a
// maximum width, re-encode as JPEG at a fixed quality.
package image

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

// DecodeError reports a corrupt or unsupported input image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode image: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure to render or re-encode the output,
// including degenerate zero-area input.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "encode image: " + e.Err.Error() }
func (e *EncodeError) Unwrap() error { return e.Err }

// Result is one normalized photo. Data is always JPEG.
type Result struct {
	Data   []byte
	Width  int
	Height int
}

// DataURL returns the result as an embeddable base64 data URL, the
// inline-photo deployment mode.
func (r *Result) DataURL() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Normalizer bounds photos to MaxWidth pixels wide and re-encodes them
// at Quality (1-100). It holds no state between calls.
type Normalizer struct {
	MaxWidth int
	Quality  int
}

func NewNormalizer(maxWidth, quality int) *Normalizer {
	return &Normalizer{MaxWidth: maxWidth, Quality: quality}
}

// Normalize converts an arbitrary raster image into a bounded JPEG.
// Images at or under MaxWidth keep their dimensions; wider images are
// scaled down preserving aspect ratio. There is no upscaling and no
// retry: one attempt, the caller decides what a failure means.
func (n *Normalizer) Normalize(data []byte) (*Result, error) {
	orientation := orientationOf(data)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	if orientation != 1 {
		img = reorient(img, orientation)
		log.Infof("applied orientation correction: %d", orientation)
	}

	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	outW, outH := srcW, srcH
	if srcW > n.MaxWidth {
		scale := float64(n.MaxWidth) / float64(srcW)
		outW = n.MaxWidth
		outH = int(math.Round(float64(srcH) * scale))
	}
	if outW <= 0 || outH <= 0 {
		return nil, &EncodeError{Err: errZeroArea}
	}

	out := img
	if outW != srcW || outH != srcH {
		scaled := image.NewRGBA(image.Rect(0, 0, outW, outH))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: n.Quality}); err != nil {
		return nil, &EncodeError{Err: err}
	}

	log.WithFields(log.Fields{
		"in_bytes":  len(data),
		"out_bytes": buf.Len(),
		"in_dim":    image.Pt(srcW, srcH).String(),
		"out_dim":   image.Pt(outW, outH).String(),
		"quality":   n.Quality,
	}).Info("photo normalized")

	return &Result{Data: buf.Bytes(), Width: outW, Height: outH}, nil
}

var errZeroArea = zeroAreaError{}

type zeroAreaError struct{}

func (zeroAreaError) Error() string { return "zero-area image" }

// orientationOf extracts the EXIF orientation tag, defaulting to 1
// (upright) when the data carries no usable EXIF block.
func orientationOf(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return v
}

// reorient maps source pixels into an upright image for EXIF
// orientations 2-8. Orientations 5-8 swap the axes.
func reorient(img image.Image, orientation int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.RGBA
	var at func(x, y int) (int, int)

	switch orientation {
	case 2: // mirrored
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		at = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // upside down
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		at = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // mirrored, upside down
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		at = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transposed
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		at = func(x, y int) (int, int) { return y, x }
	case 6: // needs 90 CW to upright
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		at = func(x, y int) (int, int) { return y, h - 1 - x }
	case 7: // transversed
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		at = func(x, y int) (int, int) { return w - 1 - y, h - 1 - x }
	case 8: // needs 90 CCW to upright
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		at = func(x, y int) (int, int) { return w - 1 - y, x }
	default:
		return img
	}

	db := dst.Bounds()
	for y := db.Min.Y; y < db.Max.Y; y++ {
		for x := db.Min.X; x < db.Max.X; x++ {
			sx, sy := at(x, y)
			dst.Set(x, y, img.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}
