package image

import (
	"image"
	"image/color"
)

// HighlightColor paints pixels that differ between the standard and current images.
var HighlightColor = color.NRGBA{R: 255, G: 10, B: 193, A: 255}

type DiffResult struct {
	// Image is nil when the images are equal.
	Image      image.Image
	Equal      bool
	DiffAmount float64
	Regions    []image.Rectangle
}

type Differ interface {
	Calculate(standard image.Image, current image.Image) *DiffResult
}
