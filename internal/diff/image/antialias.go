package image

import (
	"image"
)

// maxAntiAliasDepth bounds the neighbour checks: the two-image check looks at most one level deeper.
const maxAntiAliasDepth = 1

// IsAntiAliased reports whether the pixel at (x, y) of img looks like an anti-aliased edge pixel.
// other is the image being compared with and may be nil for a single-image check.
// Both images must share img's bounds.
// http://www.eejournal.ktu.lt/index.php/elt/article/view/10058/5000
func IsAntiAliased(img *image.NRGBA, x int, y int, other *image.NRGBA) bool {
	return isAntiAliased(img, x, y, other, 0)
}

func isAntiAliased(img *image.NRGBA, x1 int, y1 int, other *image.NRGBA, depth int) bool {
	b := img.Bounds()
	x0 := max(x1-1, b.Min.X)
	y0 := max(y1-1, b.Min.Y)
	x2 := min(x1+1, b.Max.X-1)
	y2 := min(y1+1, b.Max.Y-1)

	center := brightness(pixelAt(img, x1, y1))

	zeroes, positives, negatives := 0, 0, 0
	var minDelta, maxDelta float64
	var minX, minY, maxX, maxY int

	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}

			delta := center - brightness(pixelAt(img, x, y))
			switch {
			case delta == 0:
				zeroes++
			case delta < 0:
				negatives++
			default:
				positives++
			}

			if zeroes > 2 {
				return false
			}

			if other == nil || depth >= maxAntiAliasDepth {
				continue
			}

			if delta < minDelta {
				minDelta = delta
				minX, minY = x, y
			}
			if delta > maxDelta {
				maxDelta = delta
				maxX, maxY = x, y
			}
		}
	}

	if other == nil || depth >= maxAntiAliasDepth {
		return true
	}

	if negatives == 0 || positives == 0 {
		return false
	}

	return (!isAntiAliased(img, minX, minY, nil, depth+1) && !isAntiAliased(other, minX, minY, nil, depth+1)) ||
		(!isAntiAliased(img, maxX, maxY, nil, depth+1) && !isAntiAliased(other, maxX, maxY, nil, depth+1))
}

func brightness(p Pixel) float64 {
	r, g, b := composite(p)
	return rgb2y(r, g, b)
}

func pixelAt(img *image.NRGBA, x int, y int) Pixel {
	i := img.PixOffset(x, y)
	s := img.Pix[i : i+4 : i+4]
	return Pixel{s[0], s[1], s[2], s[3]}
}
