package image

import (
	"image"
	"image/draw"

	"github.com/fogleman/gg"
)

const (
	minBorder           = 10
	outlineWidth        = 5
	maskBackgroundAlpha = 160
)

// Border returns the proximity margin used to cluster differing pixels of a width x height image.
func Border(width int, height int) int {
	return max(max(width, height)/100, minBorder)
}

// RegionCluster groups differing pixels into rectangles while the image is scanned row by row.
// Rows must be fed in increasing order.
type RegionCluster struct {
	border int
	active []image.Rectangle
	stable []image.Rectangle
}

func NewRegionCluster(border int) *RegionCluster {
	return &RegionCluster{
		border: border,
	}
}

// Add expands the first active region lying within border of (x, y) or opens a new one.
func (c *RegionCluster) Add(x int, y int) {
	area := image.Rect(x-c.border, y-c.border, x+c.border, y+c.border)
	for i, r := range c.active {
		if r.Overlaps(area) {
			c.active[i] = r.Union(area)
			return
		}
	}
	c.active = append(c.active, area)
}

// Close moves regions that no pixel on row y or below can reach into the stable set.
func (c *RegionCluster) Close(y int) {
	kept := c.active[:0]
	for _, r := range c.active {
		if y-c.border > r.Max.Y {
			c.stable = append(c.stable, r)
			continue
		}
		kept = append(kept, r)
	}
	c.active = kept
}

// Regions returns the closed regions followed by the still active ones.
func (c *RegionCluster) Regions() []image.Rectangle {
	regions := make([]image.Rectangle, 0, len(c.stable)+len(c.active))
	regions = append(regions, c.stable...)
	regions = append(regions, c.active...)
	return regions
}

// RenderMask draws a translucent black layer with a red outline around every region
// and a fully transparent hole over each region itself.
func RenderMask(width int, height int, regions []image.Rectangle) *image.RGBA {
	dc := gg.NewContext(width, height)
	dc.SetRGBA255(0, 0, 0, maskBackgroundAlpha)
	dc.Clear()

	dc.SetRGBA255(255, 0, 0, 255)
	dc.SetLineWidth(outlineWidth)
	const half = outlineWidth / 2.0
	for _, r := range regions {
		outer := r.Inset(-outlineWidth)
		dc.DrawRectangle(
			float64(outer.Min.X)+half,
			float64(outer.Min.Y)+half,
			float64(outer.Dx())-outlineWidth,
			float64(outer.Dy())-outlineWidth,
		)
		dc.Stroke()
	}

	mask := dc.Image().(*image.RGBA)

	for _, r := range regions {
		hole := r.Intersect(mask.Bounds())
		if hole.Empty() {
			continue
		}
		draw.Draw(mask, hole, image.Transparent, image.Point{}, draw.Src)
	}

	return mask
}
