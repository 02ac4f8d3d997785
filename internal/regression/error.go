package regression

import (
	"ui-regression/internal/storage"

	"golang.org/x/xerrors"
)

// ErrBaselineNotFound is returned when a comparison has no stored baseline. It wraps storage.ErrNotFound.
var ErrBaselineNotFound = xerrors.Errorf("baseline not found: %w", storage.ErrNotFound)

// RegressionError reports a captured image that does not match its baseline.
type RegressionError struct {
	Message string
	// Standard is the copy of the baseline next to the report.
	Standard string
	Current  string
	Diff     string
	// Src is the baseline itself, to be overwritten when the change is accepted.
	Src string
	// Element is the locator of the captured element, if any.
	Element    string
	DiffAmount float64
}

func (e *RegressionError) Error() string {
	return e.Message
}
