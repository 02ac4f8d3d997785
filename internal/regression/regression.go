package regression

import (
	"context"
	"errors"
	"fmt"
	"image"
	"ui-regression/internal/capture"
	"ui-regression/internal/config"
	imagediff "ui-regression/internal/diff/image"
	"ui-regression/internal/storage"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Check describes one visual check.
type Check struct {
	// Name names the baseline; Suite and Test optionally group it.
	Name  string
	Suite string
	Test  string

	// Element restricts the capture to an element, or anchors the area when geometry is given.
	Element capture.Element

	// Width and Height size the area; zero means up to the window edge. Without an Element,
	// Left and Top position it. With an Element, all four margins extend its bounds.
	Width  int
	Height int
	Left   int
	Top    int
	Bottom int
	Right  int
	// Fill paints everything outside the area black instead of cropping to it.
	Fill bool

	// FillRects are erased from the element capture, relative to the element.
	FillRects    []image.Rectangle
	FillElements []capture.Element

	// Tolerance overrides the configured tolerance when positive.
	Tolerance float64
	Message   string
}

type Comparer struct {
	config    *config.Config
	driver    capture.Driver
	standards storage.Storage
	reports   storage.Storage
	differ    *imagediff.PixelDiff
	log       logr.Logger
}

func NewComparer(c *config.Config, driver capture.Driver, standards storage.Storage, reports storage.Storage, log logr.Logger) (*Comparer, error) {
	differ, err := imagediff.NewPixelDiff(c.DiffOptions())
	if err != nil {
		return nil, xerrors.Errorf("failed to create pixel diff: %w", err)
	}
	return &Comparer{
		config:    c,
		driver:    driver,
		standards: standards,
		reports:   reports,
		differ:    differ,
		log:       log,
	}, nil
}

// Compare captures the check and compares it with its baseline. It returns a *RegressionError
// when the images differ and ErrBaselineNotFound when there is nothing to compare with.
// In GENERATE_IMAGE mode the capture becomes the new baseline and Compare always succeeds.
func (r *Comparer) Compare(ctx context.Context, check Check) (bool, error) {
	if check.Name == "" {
		return false, xerrors.New("check name is required")
	}
	log := r.log.WithValues("check", check.Name)
	l := newLayout(check.Name, check.Suite, check.Test, r.config.FileSuffix())

	current, description, err := r.resolve(ctx, &check)
	if err != nil {
		log.Error(err, "failed to capture, comparing a placeholder instead", "size", fmt.Sprintf("%dx%d", placeholderSize, placeholderSize))
		current = placeholder()
	} else {
		log.Info("captured", "target", description)
	}

	currentPNG, err := capture.EncodePNG(current)
	if err != nil {
		return false, err
	}

	if r.config.GenerateImage {
		location, err := r.standards.Put(ctx, l.baseline(), currentPNG)
		if err != nil {
			return false, xerrors.Errorf("failed to save baseline: %w", err)
		}
		log.Info("saved baseline", "location", location)
		return true, nil
	}

	standardPNG, err := r.standards.Get(ctx, l.baseline())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, xerrors.Errorf("%s: %w", r.standards.Location(l.baseline()), ErrBaselineNotFound)
		}
		return false, xerrors.Errorf("failed to read baseline: %w", err)
	}

	differ := r.differ
	if check.Tolerance > 0 {
		differ = differ.WithTolerance(check.Tolerance)
	}
	result, err := differ.CalculateEncoded(standardPNG, currentPNG)
	if err != nil {
		return false, xerrors.Errorf("failed to compare %s: %w", check.Name, err)
	}

	var standard, cur, diff string
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		location, err := r.reports.Put(egCtx, l.report(suffixStandard), standardPNG)
		if err != nil {
			return xerrors.Errorf("failed to copy baseline: %w", err)
		}
		standard = location
		return nil
	})
	if !result.Equal {
		eg.Go(func() error {
			location, err := r.reports.Put(egCtx, l.report(suffixCurrent), currentPNG)
			if err != nil {
				return xerrors.Errorf("failed to save current image: %w", err)
			}
			cur = location
			return nil
		})
		eg.Go(func() error {
			diffPNG, err := capture.EncodePNG(result.Image)
			if err != nil {
				return err
			}
			location, err := r.reports.Put(egCtx, l.report(suffixDiff), diffPNG)
			if err != nil {
				return xerrors.Errorf("failed to save diff image: %w", err)
			}
			diff = location
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return false, err
	}

	if result.Equal {
		log.Info("images are identical")
		return true, nil
	}

	message := check.Message
	if message == "" {
		message = fmt.Sprintf("current image %q does not match the standard", check.Name)
	}
	element := ""
	if check.Element != nil {
		element = check.Element.Locator()
	}
	log.Info("images differ", "diffAmount", result.DiffAmount, "regions", len(result.Regions), "diff", diff)

	return false, &RegressionError{
		Message:    message,
		Standard:   standard,
		Current:    cur,
		Diff:       diff,
		Src:        r.standards.Location(l.baseline()),
		Element:    element,
		DiffAmount: result.DiffAmount,
	}
}
