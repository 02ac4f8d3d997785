package regression

import (
	"context"
	"fmt"
	"image"
	"ui-regression/internal/capture"

	"golang.org/x/image/draw"
	"golang.org/x/xerrors"
)

const placeholderSize = 200

func (c *Check) hasGeometry() bool {
	return c.Width != 0 || c.Height != 0 || c.Left != 0 || c.Top != 0 || c.Bottom != 0 || c.Right != 0
}

func (c *Check) hasFill() bool {
	return len(c.FillRects) > 0 || len(c.FillElements) > 0
}

// resolve captures what the check asks for and describes it for the log.
func (r *Comparer) resolve(ctx context.Context, check *Check) (image.Image, string, error) {
	switch {
	case check.Element == nil && !check.hasGeometry():
		img, err := r.captureWindow(ctx)
		return img, "window", err

	case check.Element != nil && !check.hasGeometry() && !check.hasFill():
		img, err := r.captureElement(ctx, check.Element, nil, nil)
		return img, check.Element.Name(), err

	case check.Element != nil && check.hasFill():
		img, err := r.captureElement(ctx, check.Element, check.FillRects, check.FillElements)
		return img, fmt.Sprintf("%s with %d filled areas", check.Element.Name(), len(check.FillRects)+len(check.FillElements)), err

	default:
		area := image.Rect(check.Left, check.Top, check.Left+check.Width, check.Top+check.Height)
		if check.Element != nil {
			bounds, err := check.Element.Bounds(ctx)
			if err != nil {
				return nil, "", xerrors.Errorf("failed to get bounds of %s: %w", check.Element.Name(), err)
			}
			area = image.Rect(bounds.Min.X-check.Left, bounds.Min.Y-check.Top, bounds.Max.X+check.Right, bounds.Max.Y+check.Bottom)
		}

		window, err := r.captureWindow(ctx)
		if err != nil {
			return nil, "", err
		}
		if area.Dx() == 0 {
			area.Max.X = area.Min.X + window.Bounds().Dx()
		}
		if area.Dy() == 0 {
			area.Max.Y = area.Min.Y + window.Bounds().Dy()
		}
		if area.Dx() < 0 || area.Dy() < 0 {
			return nil, "", xerrors.Errorf("invalid area %v", area)
		}

		description := fmt.Sprintf("area %dx%d at x:%d, y:%d", area.Dx(), area.Dy(), area.Min.X, area.Min.Y)
		if check.Fill {
			return fillOutside(window, area), "filled " + description, nil
		}
		return crop(window, area), description, nil
	}
}

func (r *Comparer) captureWindow(ctx context.Context) (image.Image, error) {
	b, err := r.driver.Screenshot(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to capture window: %w", err)
	}

	ratio := 0.0
	if r.config.MobileEmulation {
		ratio, err = r.driver.DevicePixelRatio(ctx)
		if err != nil {
			return nil, xerrors.Errorf("failed to get device pixel ratio: %w", err)
		}
	}
	return capture.DecodePNG(b, ratio)
}

// captureElement captures e and erases the fill rectangles, given relative to e, and the areas of the fill elements.
func (r *Comparer) captureElement(ctx context.Context, e capture.Element, rects []image.Rectangle, elements []capture.Element) (image.Image, error) {
	b, err := e.Screenshot(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to capture %s: %w", e.Name(), err)
	}
	img, err := capture.DecodePNG(b, 0)
	if err != nil {
		return nil, err
	}
	if len(rects) == 0 && len(elements) == 0 {
		return img, nil
	}

	areas := make([]image.Rectangle, 0, len(rects)+len(elements))
	for _, rect := range rects {
		if r.config.DeviceName == "ios" {
			// points to pixels
			rect = image.Rect(rect.Min.X*2, rect.Min.Y*2, rect.Max.X*2, rect.Max.Y*2)
		}
		areas = append(areas, rect)
	}
	if len(elements) > 0 {
		parent, err := e.Bounds(ctx)
		if err != nil {
			return nil, xerrors.Errorf("failed to get bounds of %s: %w", e.Name(), err)
		}
		for _, fe := range elements {
			bounds, err := fe.Bounds(ctx)
			if err != nil {
				return nil, xerrors.Errorf("failed to get bounds of %s: %w", fe.Name(), err)
			}
			areas = append(areas, bounds.Sub(parent.Min))
		}
	}

	dst := image.NewNRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	for _, area := range areas {
		draw.Draw(dst, area.Add(dst.Bounds().Min), image.Transparent, image.Point{}, draw.Src)
	}
	return dst, nil
}

func crop(src image.Image, area image.Rectangle) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	draw.Draw(dst, dst.Bounds(), src, area.Min.Add(src.Bounds().Min), draw.Src)
	return dst
}

// fillOutside keeps the window size and paints everything outside area black.
func fillOutside(src image.Image, area image.Rectangle) image.Image {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	keep := area.Intersect(dst.Bounds())
	draw.Draw(dst, keep, src, keep.Min.Add(b.Min), draw.Src)
	return dst
}

func placeholder() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
	return img
}
