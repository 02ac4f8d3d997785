package image

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/xerrors"
)

// Pixel is a non-premultiplied RGBA tuple.
type Pixel [4]uint8

// DistanceFunc returns a perceptual difference between two pixels, 0 for identical colors.
type DistanceFunc func(a Pixel, b Pixel) float64

type ColorSpace string

const (
	ColorSpaceCIEDE2000 ColorSpace = "lab"
	ColorSpaceCIE76     ColorSpace = "lab76"
	ColorSpaceYIQ       ColorSpace = "yiq"
)

// YIQThreshold is the fixed squared YIQ delta below which two pixels are equal.
// The YIQ model ignores the caller tolerance.
const YIQThreshold = 8.1

func ParseColorSpace(s string) (ColorSpace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lab", "ciede2000":
		return ColorSpaceCIEDE2000, nil
	case "lab76", "cie76":
		return ColorSpaceCIE76, nil
	case "yiq":
		return ColorSpaceYIQ, nil
	default:
		return "", xerrors.Errorf("unknown color space: %s", s)
	}
}

func (c ColorSpace) Distance() (DistanceFunc, error) {
	switch c {
	case ColorSpaceCIEDE2000, "":
		return CIEDE2000, nil
	case ColorSpaceCIE76:
		return CIE76, nil
	case ColorSpaceYIQ:
		return YIQ, nil
	default:
		return nil, xerrors.Errorf("unknown color space: %s", c)
	}
}

// blend composites a channel with the given alpha against a white background.
func blend(c uint8, a uint8) float64 {
	return 255 + (float64(c)-255)*float64(a)/255
}

func composite(p Pixel) (float64, float64, float64) {
	return blend(p[0], p[3]), blend(p[1], p[3]), blend(p[2], p[3])
}

// lab converts through XYZ (2° observer, D65) and scales L*a*b* to the usual 0..100 range.
func lab(p Pixel) (float64, float64, float64) {
	r, g, b := composite(p)
	l, a, bb := colorful.Color{R: r / 255, G: g / 255, B: b / 255}.Lab()
	return l * 100, a * 100, bb * 100
}

func CIE76(p1 Pixel, p2 Pixel) float64 {
	if p1 == p2 {
		return 0
	}
	l1, a1, b1 := lab(p1)
	l2, a2, b2 := lab(p2)
	return math.Sqrt(sq(l2-l1) + sq(a2-a1) + sq(b2-b1))
}

const pow25To7 = 6103515625.0

func CIEDE2000(p1 Pixel, p2 Pixel) float64 {
	if p1 == p2 {
		return 0
	}
	l1, a1, b1 := lab(p1)
	l2, a2, b2 := lab(p2)

	const kl, kc, kh = 1.0, 1.0, 1.0

	c1 := math.Hypot(a1, b1)
	c2 := math.Hypot(a2, b2)
	cBar7 := math.Pow((c1+c2)/2, 7)
	g := 0.5 * (1 - math.Sqrt(cBar7/(cBar7+pow25To7)))

	a1p := a1 * (1 + g)
	a2p := a2 * (1 + g)
	c1p := math.Hypot(a1p, b1)
	c2p := math.Hypot(a2p, b2)

	h1p := hueDegrees(b1, a1p)
	h2p := hueDegrees(b2, a2p)

	dLp := l2 - l1
	dCp := c2p - c1p

	var dhp float64
	switch {
	case c1p*c2p == 0:
		dhp = 0
	case math.Abs(h2p-h1p) <= 180:
		dhp = h2p - h1p
	case h2p <= h1p:
		dhp = h2p - h1p + 360
	default:
		dhp = h2p - h1p - 360
	}
	dHp := 2 * math.Sqrt(c1p*c2p) * math.Sin(radians(dhp/2))

	lBarP := (l1 + l2) / 2
	cBarP := (c1p + c2p) / 2

	var hBarP float64
	switch {
	case c1p*c2p == 0:
		hBarP = h1p + h2p
	case math.Abs(h1p-h2p) <= 180:
		hBarP = (h1p + h2p) / 2
	case h1p+h2p < 360:
		hBarP = (h1p + h2p + 360) / 2
	default:
		hBarP = (h1p + h2p - 360) / 2
	}

	t := 1 -
		0.17*math.Cos(radians(hBarP-30)) +
		0.24*math.Cos(radians(2*hBarP)) +
		0.32*math.Cos(radians(3*hBarP+6)) -
		0.20*math.Cos(radians(4*hBarP-63))

	sl := 1 + (0.015*sq(lBarP-50))/math.Sqrt(20+sq(lBarP-50))
	sc := 1 + 0.045*cBarP
	sh := 1 + 0.015*cBarP*t

	dTheta := 30 * math.Exp(-sq((hBarP-275)/25))
	cBarP7 := math.Pow(cBarP, 7)
	rc := 2 * math.Sqrt(cBarP7/(cBarP7+pow25To7))
	rt := -rc * math.Sin(radians(2*dTheta))

	fl := dLp / (kl * sl)
	fc := dCp / (kc * sc)
	fh := dHp / (kh * sh)

	return math.Sqrt(fl*fl + fc*fc + fh*fh + rt*fc*fh)
}

// YIQ reports 0 when the squared YIQ delta is below YIQThreshold and +Inf otherwise,
// so any finite tolerance classifies the pair the same way.
func YIQ(p1 Pixel, p2 Pixel) float64 {
	if p1 == p2 || yiqDelta(p1, p2) < YIQThreshold {
		return 0
	}
	return math.Inf(1)
}

// https://github.com/mapbox/pixelmatch
func yiqDelta(p1 Pixel, p2 Pixel) float64 {
	r1, g1, b1 := composite(p1)
	r2, g2, b2 := composite(p2)

	y := rgb2y(r1, g1, b1) - rgb2y(r2, g2, b2)
	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)

	return 0.5053*y*y + 0.299*i*i + 0.1957*q*q
}

func rgb2y(r, g, b float64) float64 {
	return r*0.29889531 + g*0.58662247 + b*0.11448223
}

func rgb2i(r, g, b float64) float64 {
	return r*0.59597799 - g*0.27417610 - b*0.32180189
}

func rgb2q(r, g, b float64) float64 {
	return r*0.21147017 - g*0.52261711 + b*0.31114694
}

func hueDegrees(b float64, a float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	h := math.Atan2(b, a) * 180 / math.Pi
	if h < 0 {
		h += 360
	}
	return h
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func sq(v float64) float64 {
	return v * v
}
