package should

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by targets whose element is absent. Negative expectations treat it as success.
var ErrNotFound = errors.New("element not found")

// Target is anything a condition can be checked against.
type Target interface {
	// Name is the human readable name used in failure messages.
	Name() string
}

// Locatable targets report where they were looked up, appended to failure messages.
type Locatable interface {
	Locator() string
}

type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type Element interface {
	Target
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	CSSProperty(ctx context.Context, name string) (string, error)
	Count(ctx context.Context) (int, error)
	Box(ctx context.Context) (Box, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsPresent(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	IsReadonly(ctx context.Context) (bool, error)
	IsActive(ctx context.Context) (bool, error)
}

type Browser interface {
	Target
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	WindowCount(ctx context.Context) (int, error)
	FrameCount(ctx context.Context) (int, error)
}
