package capture

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/xerrors"
)

// Driver captures the visible browser window.
type Driver interface {
	// Screenshot returns the window as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	DevicePixelRatio(ctx context.Context) (float64, error)
}

// Element is a rendered element that can be captured on its own.
type Element interface {
	Name() string
	Locator() string
	// Bounds is the element box in window coordinates.
	Bounds(ctx context.Context) (image.Rectangle, error)
	// Screenshot returns the element as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// DecodePNG decodes a screenshot and, for a device pixel ratio other than 0 or 1, scales it down to CSS pixels.
func DecodePNG(data []byte, devicePixelRatio float64) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, xerrors.Errorf("failed to decode screenshot: %w", err)
	}
	if devicePixelRatio <= 0 || devicePixelRatio == 1 {
		return img, nil
	}

	b := img.Bounds()
	width := int(math.Round(float64(b.Dx()) / devicePixelRatio))
	height := int(math.Round(float64(b.Dy()) / devicePixelRatio))
	if width <= 0 || height <= 0 {
		return nil, xerrors.Errorf("device pixel ratio %f leaves nothing of %dx%d", devicePixelRatio, b.Dx(), b.Dy())
	}

	scaled := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
	return scaled, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, xerrors.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
