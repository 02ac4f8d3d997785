package image

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"runtime"
	"sync"

	"golang.org/x/xerrors"
)

type Options struct {
	// Tolerance is the color distance below which two pixels are equal.
	Tolerance float64
	// AntiAliasing enables suppression of anti-aliased pixels whose distance is below AntiAliasingTolerance.
	AntiAliasing          bool
	AntiAliasingTolerance float64
	ColorSpace            ColorSpace
	// HighlightDiff overlays the clustered diff regions on the diff image.
	HighlightDiff bool
}

var _ Differ = (*PixelDiff)(nil)

type PixelDiff struct {
	options  Options
	distance DistanceFunc
}

func NewPixelDiff(options Options) (*PixelDiff, error) {
	if options.Tolerance < 0 {
		return nil, xerrors.Errorf("tolerance must not be negative: %f", options.Tolerance)
	}
	if options.AntiAliasingTolerance < 0 {
		return nil, xerrors.Errorf("anti-aliasing tolerance must not be negative: %f", options.AntiAliasingTolerance)
	}
	distance, err := options.ColorSpace.Distance()
	if err != nil {
		return nil, xerrors.Errorf("failed to select color distance: %w", err)
	}
	return &PixelDiff{
		options:  options,
		distance: distance,
	}, nil
}

// WithTolerance returns a copy of p comparing with the given tolerance.
func (p *PixelDiff) WithTolerance(tolerance float64) *PixelDiff {
	c := *p
	c.options.Tolerance = tolerance
	return &c
}

// equal reports whether delta is below the tolerance. A zero distance is always equal.
func (p *PixelDiff) equal(delta float64) bool {
	return delta == 0 || delta < p.options.Tolerance
}

// antiAliasingCandidate reports whether a differing pixel may still be suppressed as anti-aliasing.
// YIQ distances only say different or not, so every YIQ difference is a candidate.
func (p *PixelDiff) antiAliasingCandidate(delta float64) bool {
	return p.options.ColorSpace == ColorSpaceYIQ || delta < p.options.AntiAliasingTolerance
}

func (p *PixelDiff) Options() Options {
	return p.options
}

// CalculateEncoded compares two encoded images, skipping the pixel scan when the encodings are identical.
func (p *PixelDiff) CalculateEncoded(standard []byte, current []byte) (*DiffResult, error) {
	if bytes.Equal(standard, current) {
		return &DiffResult{
			Equal: true,
		}, nil
	}

	s, _, err := image.Decode(bytes.NewReader(standard))
	if err != nil {
		return nil, xerrors.Errorf("failed to decode standard image: %w", err)
	}
	c, _, err := image.Decode(bytes.NewReader(current))
	if err != nil {
		return nil, xerrors.Errorf("failed to decode current image: %w", err)
	}

	return p.Calculate(s, c), nil
}

func (p *PixelDiff) Calculate(standard image.Image, current image.Image) *DiffResult {
	if standard == current {
		return &DiffResult{
			Equal: true,
		}
	}

	s := ToNRGBA(standard)
	c := ToNRGBA(current)

	if !s.Bounds().Eq(c.Bounds()) {
		return p.calculateMismatch(s, c)
	}
	return p.calculateScan(s, c)
}

// calculateMismatch highlights everything outside the common area and compares the rest without anti-aliasing suppression.
func (p *PixelDiff) calculateMismatch(standard *image.NRGBA, current *image.NRGBA) *DiffResult {
	sb := standard.Bounds()
	cb := current.Bounds()
	width := max(sb.Dx(), cb.Dx())
	height := max(sb.Dy(), cb.Dy())
	minWidth := min(sb.Dx(), cb.Dx())
	minHeight := min(sb.Dy(), cb.Dy())

	diff := image.NewNRGBA(image.Rect(0, 0, width, height))
	highlighted := p.fanOut(height, func(y int) int {
		count := 0
		for x := 0; x < width; x++ {
			if x >= minWidth || y >= minHeight {
				diff.SetNRGBA(x, y, HighlightColor)
				count++
				continue
			}
			cp := pixelAt(current, x, y)
			sp := pixelAt(standard, x, y)
			if cp == sp || p.equal(p.distance(cp, sp)) {
				setPixel(diff, x, y, cp)
				continue
			}
			diff.SetNRGBA(x, y, HighlightColor)
			count++
		}
		return count
	})

	return &DiffResult{
		Image:      diff,
		Equal:      false,
		DiffAmount: amount(highlighted, width*height),
	}
}

func (p *PixelDiff) calculateScan(standard *image.NRGBA, current *image.NRGBA) *DiffResult {
	bounds := standard.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	diff := image.NewNRGBA(bounds)
	copy(diff.Pix, standard.Pix)

	rows := make([][]int, height)
	highlighted := p.fanOut(height, func(y int) int {
		for x := 0; x < width; x++ {
			cp := pixelAt(current, x, y)
			sp := pixelAt(standard, x, y)
			if cp == sp {
				continue
			}
			delta := p.distance(cp, sp)
			if p.equal(delta) {
				continue
			}
			if p.options.AntiAliasing && p.antiAliasingCandidate(delta) &&
				(IsAntiAliased(current, x, y, standard) || IsAntiAliased(standard, x, y, current)) {
				continue
			}
			diff.SetNRGBA(x, y, HighlightColor)
			rows[y] = append(rows[y], x)
		}
		return len(rows[y])
	})

	if highlighted == 0 {
		return &DiffResult{
			Equal: true,
		}
	}

	result := &DiffResult{
		Image:      diff,
		Equal:      false,
		DiffAmount: amount(highlighted, width*height),
	}

	if !p.options.HighlightDiff {
		return result
	}

	cluster := NewRegionCluster(Border(width, height))
	for y, xs := range rows {
		for _, x := range xs {
			cluster.Add(x, y)
		}
		cluster.Close(y)
	}
	regions := cluster.Regions()

	masked := image.NewNRGBA(bounds)
	copy(masked.Pix, diff.Pix)
	draw.Draw(masked, bounds, RenderMask(width, height, regions), image.Point{}, draw.Over)

	result.Image = masked
	result.Regions = regions
	return result
}

// fanOut runs scanRow for every row across GOMAXPROCS workers and returns the summed counts.
// scanRow must only write to its own row.
func (p *PixelDiff) fanOut(height int, scanRow func(y int) int) int {
	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	numWorkers := min(runtime.GOMAXPROCS(0), max(height, 1))
	rowsPerWorker := height / numWorkers

	counts := make([]int, numWorkers)
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		go func(i int, startY int, endY int) {
			defer wg.Done()
			for y := startY; y < endY; y++ {
				counts[i] += scanRow(y)
			}
		}(i, startY, endY)
	}
	wg.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// ToNRGBA returns img as a non-premultiplied image whose bounds start at the origin and whose rows are contiguous.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
	return n
}

func setPixel(img *image.NRGBA, x int, y int, p Pixel) {
	i := img.PixOffset(x, y)
	copy(img.Pix[i:i+4], p[:])
}

func amount(highlighted int, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(highlighted) / float64(total)
}
