package image

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func createTestImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func fillRect(img *image.NRGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func newTestPixelDiff(t testing.TB, options Options) *PixelDiff {
	t.Helper()
	pd, err := NewPixelDiff(options)
	if err != nil {
		t.Fatal(err)
	}
	return pd
}

func defaultOptions() Options {
	return Options{
		Tolerance:             2.3,
		AntiAliasing:          true,
		AntiAliasingTolerance: 10,
		ColorSpace:            ColorSpaceCIEDE2000,
		HighlightDiff:         true,
	}
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNewPixelDiff(t *testing.T) {
	t.Run("NegativeTolerance", func(t *testing.T) {
		o := defaultOptions()
		o.Tolerance = -1
		if _, err := NewPixelDiff(o); err == nil {
			t.Error("expected error for negative tolerance")
		}
	})

	t.Run("UnknownColorSpace", func(t *testing.T) {
		o := defaultOptions()
		o.ColorSpace = "hsv"
		if _, err := NewPixelDiff(o); err == nil {
			t.Error("expected error for unknown color space")
		}
	})
}

func TestPixelDiff_Calculate(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		img := createTestImage(50, 50, color.White)
		fillRect(img, image.Rect(10, 10, 20, 20), color.NRGBA{R: 200, G: 30, B: 40, A: 255})
		clone := createTestImage(50, 50, color.White)
		copy(clone.Pix, img.Pix)

		for _, space := range []ColorSpace{ColorSpaceCIEDE2000, ColorSpaceCIE76, ColorSpaceYIQ} {
			for _, tolerance := range []float64{0, 2.3, 100} {
				o := defaultOptions()
				o.ColorSpace = space
				o.Tolerance = tolerance
				result := newTestPixelDiff(t, o).Calculate(img, clone)
				if !result.Equal {
					t.Errorf("%s/%f: expected equal", space, tolerance)
				}
				if result.Image != nil {
					t.Errorf("%s/%f: expected no diff image", space, tolerance)
				}
			}
		}
	})

	t.Run("SameImageInstance", func(t *testing.T) {
		img := createTestImage(100, 100, color.White)
		result := newTestPixelDiff(t, defaultOptions()).Calculate(img, img)
		if !result.Equal || result.DiffAmount != 0.0 {
			t.Errorf("expected equal result for same image instance, got %+v", result)
		}
	})

	t.Run("CompleteDifference", func(t *testing.T) {
		o := defaultOptions()
		o.HighlightDiff = false
		result := newTestPixelDiff(t, o).Calculate(createTestImage(100, 100, color.White), createTestImage(100, 100, color.Black))
		if result.Equal {
			t.Fatal("expected not equal")
		}
		if result.DiffAmount != 1.0 {
			t.Errorf("Expected DiffAmount to be 1.0, got %f", result.DiffAmount)
		}
		if got := result.Image.At(42, 42); got != HighlightColor {
			t.Errorf("expected highlight color, got %v", got)
		}
	})

	t.Run("PartialDifference", func(t *testing.T) {
		standard := createTestImage(100, 100, color.White)
		current := createTestImage(100, 100, color.White)
		fillRect(current, image.Rect(0, 0, 100, 50), color.Black)

		o := defaultOptions()
		o.HighlightDiff = false
		result := newTestPixelDiff(t, o).Calculate(standard, current)
		if result.DiffAmount != 0.5 {
			t.Errorf("Expected DiffAmount to be 0.5, got %f", result.DiffAmount)
		}
		if got := result.Image.At(10, 80); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
			t.Errorf("expected untouched standard pixel, got %v", got)
		}
	})

	t.Run("ToleranceBoundary", func(t *testing.T) {
		standard := createTestImage(10, 10, color.NRGBA{R: 255, A: 255})
		current := createTestImage(10, 10, color.NRGBA{R: 255, A: 255})
		current.SetNRGBA(3, 3, color.NRGBA{R: 255, G: 5, B: 5, A: 255})
		distance := CIE76(Pixel{255, 5, 5, 255}, Pixel{255, 0, 0, 255})

		o := defaultOptions()
		o.ColorSpace = ColorSpaceCIE76
		o.AntiAliasing = false

		o.Tolerance = distance
		if newTestPixelDiff(t, o).Calculate(standard, current).Equal {
			t.Error("distance equal to the tolerance must be a difference")
		}

		o.Tolerance = math.Nextafter(distance, math.Inf(1))
		if !newTestPixelDiff(t, o).Calculate(standard, current).Equal {
			t.Error("distance below the tolerance must be equal")
		}
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		standard := createTestImage(10, 10, color.White)
		current := createTestImage(20, 10, color.White)

		result := newTestPixelDiff(t, defaultOptions()).Calculate(standard, current)
		if result.Equal {
			t.Fatal("expected not equal for different sizes")
		}
		if diff := cmp.Diff(image.Rect(0, 0, 20, 10), result.Image.Bounds()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		for y := 0; y < 10; y++ {
			for x := 0; x < 20; x++ {
				got := result.Image.At(x, y)
				if x >= 10 && got != HighlightColor {
					t.Errorf("(%d, %d): expected highlight color, got %v", x, y, got)
				}
				if x < 10 && got == HighlightColor {
					t.Errorf("(%d, %d): unexpected highlight", x, y)
				}
			}
		}
		if result.DiffAmount != 0.5 {
			t.Errorf("Expected DiffAmount to be 0.5, got %f", result.DiffAmount)
		}
	})

	t.Run("SizeMismatchIgnoresAntiAliasing", func(t *testing.T) {
		standard := createEdgeImage()
		current := image.NewNRGBA(image.Rect(0, 0, 10, 11))
		draw.Draw(current, standard.Bounds(), standard, image.Point{}, draw.Src)
		current.SetNRGBA(5, 5, color.NRGBA{R: 140, G: 140, B: 140, A: 255})

		result := newTestPixelDiff(t, defaultOptions()).Calculate(standard, current)
		if got := result.Image.At(5, 5); got != HighlightColor {
			t.Errorf("expected anti-aliased pixel to be highlighted, got %v", got)
		}
	})

	t.Run("AntiAliasingSuppression", func(t *testing.T) {
		standard := createEdgeImage()
		current := createEdgeImage()
		current.SetNRGBA(5, 5, color.NRGBA{R: 140, G: 140, B: 140, A: 255})

		o := defaultOptions()
		if result := newTestPixelDiff(t, o).Calculate(standard, current); !result.Equal {
			t.Error("anti-aliased pixel should be suppressed")
		}

		o.AntiAliasing = false
		result := newTestPixelDiff(t, o).Calculate(standard, current)
		if result.Equal {
			t.Fatal("pixel should be a difference without anti-aliasing suppression")
		}
		if diff := cmp.Diff([]image.Rectangle{image.Rect(-5, -5, 15, 15)}, result.Regions); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}

		o.AntiAliasing = true
		o.AntiAliasingTolerance = 1
		if newTestPixelDiff(t, o).Calculate(standard, current).Equal {
			t.Error("distance above the anti-aliasing tolerance must not be suppressed")
		}
	})

	t.Run("AntiAliasingSuppressionYIQ", func(t *testing.T) {
		standard := createEdgeImage()
		current := createEdgeImage()
		current.SetNRGBA(5, 5, color.NRGBA{R: 140, G: 140, B: 140, A: 255})

		o := defaultOptions()
		o.ColorSpace = ColorSpaceYIQ
		if !newTestPixelDiff(t, o).Calculate(standard, current).Equal {
			t.Error("anti-aliased pixel should be suppressed under YIQ")
		}

		o.AntiAliasing = false
		if newTestPixelDiff(t, o).Calculate(standard, current).Equal {
			t.Error("pixel should be a difference under YIQ without anti-aliasing suppression")
		}
	})

	t.Run("HighlightMask", func(t *testing.T) {
		standard := createTestImage(100, 100, color.White)
		current := createTestImage(100, 100, color.White)
		fillRect(current, image.Rect(40, 40, 45, 45), color.Black)

		result := newTestPixelDiff(t, defaultOptions()).Calculate(standard, current)
		if result.Equal {
			t.Fatal("expected not equal")
		}
		if diff := cmp.Diff([]image.Rectangle{image.Rect(30, 30, 54, 54)}, result.Regions); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if got := result.Image.At(42, 42); got != HighlightColor {
			t.Errorf("expected highlight inside the region, got %v", got)
		}
		if got := result.Image.At(50, 50); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
			t.Errorf("expected untouched pixel inside the region, got %v", got)
		}
		if got := result.Image.At(27, 40).(color.NRGBA); got.R != 255 || got.G != 0 || got.B != 0 {
			t.Errorf("expected red outline, got %v", got)
		}
		if got := result.Image.At(5, 5).(color.NRGBA); got.R >= 255 {
			t.Errorf("expected darkened pixel outside the region, got %v", got)
		}
	})

	t.Run("SolidRedPatch", func(t *testing.T) {
		red := color.NRGBA{R: 255, A: 255}
		standard := createTestImage(100, 100, red)
		current := createTestImage(100, 100, red)
		fillRect(current, image.Rect(20, 20, 30, 30), color.NRGBA{R: 255, G: 5, B: 5, A: 255})

		o := defaultOptions()
		o.ColorSpace = ColorSpaceCIE76
		for i := 0; i < 3; i++ {
			if !newTestPixelDiff(t, o).Calculate(standard, current).Equal {
				t.Fatal("patch within the tolerance should be equal")
			}
		}

		result := newTestPixelDiff(t, o).WithTolerance(1).Calculate(standard, current)
		if result.Equal {
			t.Fatal("patch above the tolerance should not be equal")
		}
		if result.DiffAmount != 0.01 {
			t.Errorf("Expected DiffAmount to be 0.01, got %f", result.DiffAmount)
		}
		if diff := cmp.Diff([]image.Rectangle{image.Rect(10, 10, 39, 39)}, result.Regions); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("OffsetBounds", func(t *testing.T) {
		standard := createTestImage(10, 10, color.White)
		current := image.NewNRGBA(image.Rect(5, 5, 15, 15))
		draw.Draw(current, current.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
		if !newTestPixelDiff(t, defaultOptions()).Calculate(standard, current).Equal {
			t.Error("images with the same pixels at different origins should be equal")
		}
	})

	t.Run("SubImageStride", func(t *testing.T) {
		parent := createTestImage(100, 100, color.White)
		fillRect(parent, image.Rect(50, 0, 100, 100), color.NRGBA{B: 255, A: 255})
		standard := parent.SubImage(image.Rect(0, 0, 50, 50)).(*image.NRGBA)
		current := createTestImage(50, 50, color.White)
		current.SetNRGBA(25, 25, color.NRGBA{A: 255})

		o := defaultOptions()
		o.HighlightDiff = false
		result := newTestPixelDiff(t, o).Calculate(standard, current)
		if result.Equal {
			t.Fatal("expected not equal")
		}
		if got := result.Image.At(10, 1); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
			t.Errorf("expected the standard background at (10,1), got %v", got)
		}
	})
}

func TestPixelDiff_CalculateEncoded(t *testing.T) {
	pd := newTestPixelDiff(t, defaultOptions())

	t.Run("IdenticalBytes", func(t *testing.T) {
		b := encodePNG(t, createTestImage(10, 10, color.White))
		result, err := pd.CalculateEncoded(b, b)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Equal {
			t.Error("expected equal")
		}
	})

	t.Run("Different", func(t *testing.T) {
		result, err := pd.CalculateEncoded(
			encodePNG(t, createTestImage(10, 10, color.White)),
			encodePNG(t, createTestImage(10, 10, color.Black)),
		)
		if err != nil {
			t.Fatal(err)
		}
		if result.Equal {
			t.Error("expected not equal")
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		if _, err := pd.CalculateEncoded([]byte("standard"), []byte("current")); err == nil {
			t.Error("expected decode error")
		}
	})
}

func BenchmarkPixelDiff_Calculate_Small(b *testing.B) {
	pd := newTestPixelDiff(b, defaultOptions())
	img1 := createTestImage(1920, 1080, color.White)
	img2 := createTestImage(1920, 1080, color.White)
	fillRect(img2, image.Rect(100, 100, 300, 300), color.Black)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pd.Calculate(img1, img2)
	}
}

func BenchmarkPixelDiff_Calculate_Large(b *testing.B) {
	pd := newTestPixelDiff(b, defaultOptions())
	img1 := createTestImage(3840, 2160, color.White)
	img2 := createTestImage(3840, 2160, color.White)
	fillRect(img2, image.Rect(100, 100, 300, 300), color.Black)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pd.Calculate(img1, img2)
	}
}
