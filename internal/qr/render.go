package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

// DefaultSize is the edge length in pixels of rendered images.
const DefaultSize = 300

// ContentType of rendered images.
const ContentType = "image/png"

// Renderer turns token data into a square PNG.
type Renderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

// NewRenderer returns a renderer at the given size with the highest error
// correction level, so worn or partly covered labels still scan.
func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{Size: size, Level: qrcode.Highest}
}

// Render encodes data and returns PNG bytes.
func (r *Renderer) Render(data string) ([]byte, error) {
	if data == "" {
		return nil, fmt.Errorf("empty qr data")
	}

	code, err := qrcode.New(data, r.Level)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}

	// One pixel per module, then scale to the requested size.
	img := fit(code.Image(-1), r.Size)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales img to a size×size square. Nearest-neighbour keeps module
// edges sharp; any smoothing kernel would blur them into grey.
func fit(img image.Image, size int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() == size && bounds.Dy() == size {
		return img
	}
	if bounds.Dx() > size {
		size = bounds.Dx()
	}

	dst := image.NewGray(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
