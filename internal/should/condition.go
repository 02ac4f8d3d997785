package should

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/xerrors"
)

// ErrInvalidCondition marks conditions that can never be evaluated. It is returned immediately, never polled.
var ErrInvalidCondition = errors.New("invalid condition")

// Condition is one of the condition types declared in this file.
type Condition interface {
	condition()
}

type (
	ExactText             struct{ Text string }
	ExactTextIgnoringCase struct{ Text string }
	// ContainsText requires a non-empty Text.
	ContainsText     struct{ Text string }
	TextIgnoringCase struct{ Text string }
	// MatchRegex searches the element text for Pattern.
	MatchRegex struct{ Pattern string }
	CSSClass   struct{ Class string }
	// Attribute matches when every attribute has the given value.
	Attribute struct{ Values map[string]string }
	// CSSProperty is unknown while only some of the properties match, and keeps being polled.
	CSSProperty   struct{ Values map[string]string }
	CountElements struct{ Count int }
	// Size compares the rounded rendered size; a nil dimension is not checked.
	Size        struct{ Width, Height *int }
	Coordinates struct{ X, Y int }
	Displayed   struct{}
	Hidden      struct{}
	Present     struct{}
	Enabled     struct{}
	Disabled    struct{}
	Readonly    struct{}
	Empty       struct{}
	Active      struct{}

	URLExact      struct{ URL string }
	URLContains   struct{ Text string }
	TitleExact    struct{ Title string }
	TitleContains struct{ Text string }
	CountWindows  struct{ Count int }
	CountFrames   struct{ Count int }

	Not struct{ Condition Condition }
)

func (ExactText) condition()             {}
func (ExactTextIgnoringCase) condition() {}
func (ContainsText) condition()          {}
func (TextIgnoringCase) condition()      {}
func (MatchRegex) condition()            {}
func (CSSClass) condition()              {}
func (Attribute) condition()             {}
func (CSSProperty) condition()           {}
func (CountElements) condition()         {}
func (Size) condition()                  {}
func (Coordinates) condition()           {}
func (Displayed) condition()             {}
func (Hidden) condition()                {}
func (Present) condition()               {}
func (Enabled) condition()               {}
func (Disabled) condition()              {}
func (Readonly) condition()              {}
func (Empty) condition()                 {}
func (Active) condition()                {}
func (URLExact) condition()              {}
func (URLContains) condition()           {}
func (TitleExact) condition()            {}
func (TitleContains) condition()         {}
func (CountWindows) condition()          {}
func (CountFrames) condition()           {}
func (Not) condition()                   {}

func SizeOf(width int, height int) Size {
	return Size{Width: &width, Height: &height}
}

func Width(width int) Size {
	return Size{Width: &width}
}

func Height(height int) Size {
	return Size{Height: &height}
}

// Verdict is the outcome of one evaluation. Unknown never satisfies an expectation.
type Verdict int

const (
	Unknown Verdict = iota
	True
	False
)

func verdictOf(b bool) Verdict {
	if b {
		return True
	}
	return False
}

func (v Verdict) String() string {
	switch v {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// observation is what a single evaluation saw, kept for the failure message.
type observation struct {
	verdict Verdict
	// actual is the current value formatted for display.
	actual string
	// details lists per-item comparisons, one per line.
	details []string
}

// unwrapNot strips Not wrappers and reports whether an odd number of them was removed.
func unwrapNot(c Condition) (Condition, bool) {
	negated := false
	for {
		n, ok := c.(Not)
		if !ok {
			return c, negated
		}
		c = n.Condition
		negated = !negated
	}
}

func validate(c Condition) error {
	c, _ = unwrapNot(c)
	switch c := c.(type) {
	case nil:
		return xerrors.Errorf("nil condition: %w", ErrInvalidCondition)
	case ContainsText:
		if c.Text == "" {
			return xerrors.Errorf("checking for an empty substring is meaningless: %w", ErrInvalidCondition)
		}
	case MatchRegex:
		if _, err := regexp.Compile(c.Pattern); err != nil {
			return xerrors.Errorf("invalid pattern %q: %v: %w", c.Pattern, err, ErrInvalidCondition)
		}
	case Attribute:
		if len(c.Values) == 0 {
			return xerrors.Errorf("no attributes to check: %w", ErrInvalidCondition)
		}
	case CSSProperty:
		if len(c.Values) == 0 {
			return xerrors.Errorf("no css properties to check: %w", ErrInvalidCondition)
		}
	case Size:
		if c.Width == nil && c.Height == nil {
			return xerrors.Errorf("neither width nor height is set: %w", ErrInvalidCondition)
		}
	case CountElements:
		if c.Count < 0 {
			return xerrors.Errorf("negative count %d: %w", c.Count, ErrInvalidCondition)
		}
	}
	return nil
}

// appendsMessage reports whether the generated description is appended to a caller message
// instead of being replaced by it.
func appendsMessage(c Condition) bool {
	switch c.(type) {
	case Disabled, Readonly, Empty, Hidden, Present, Displayed, Active:
		return false
	default:
		return true
	}
}

func asElement(c Condition, t Target) (Element, error) {
	e, ok := t.(Element)
	if !ok {
		return nil, xerrors.Errorf("%T requires an element target, got %T: %w", c, t, ErrInvalidCondition)
	}
	return e, nil
}

func asBrowser(c Condition, t Target) (Browser, error) {
	b, ok := t.(Browser)
	if !ok {
		return nil, xerrors.Errorf("%T requires a browser target, got %T: %w", c, t, ErrInvalidCondition)
	}
	return b, nil
}

// allOrNone is True when nothing missed, False when everything missed and Unknown in between.
func allOrNone(misses, total int) Verdict {
	switch misses {
	case 0:
		return True
	case total:
		return False
	default:
		return Unknown
	}
}

// evaluate checks a condition without Not wrappers against the target once.
func evaluate(ctx context.Context, c Condition, t Target) (observation, error) {
	switch c := c.(type) {
	case ExactText, ExactTextIgnoringCase, ContainsText, TextIgnoringCase, MatchRegex, Empty:
		e, err := asElement(c, t)
		if err != nil {
			return observation{}, err
		}
		text, err := e.Text(ctx)
		if err != nil {
			return observation{}, xerrors.Errorf("failed to get text of %s: %w", t.Name(), err)
		}
		return observation{verdict: verdictOf(matchText(c, text)), actual: text}, nil

	case CSSClass:
		e, err := asElement(c, t)
		if err != nil {
			return observation{}, err
		}
		classes, err := e.Attribute(ctx, "class")
		if err != nil {
			return observation{}, xerrors.Errorf("failed to get css class of %s: %w", t.Name(), err)
		}
		return observation{verdict: verdictOf(slices.Contains(strings.Fields(classes), c.Class)), actual: classes}, nil

	case Attribute:
		e, err := asElement(c, t)
		if err != nil {
			return observation{}, err
		}
		misses := 0
		o := observation{}
		for _, name := range sortedKeys(c.Values) {
			current, err := e.Attribute(ctx, name)
			if err != nil {
				return observation{}, xerrors.Errorf("failed to get attribute %s of %s: %w", name, t.Name(), err)
			}
			if current != c.Values[name] {
				misses++
			}
			o.details = append(o.details, fmt.Sprintf("%s: %s, current: %s", name, c.Values[name], current))
		}
		o.verdict = allOrNone(misses, len(c.Values))
		return o, nil

	case CSSProperty:
		e, err := asElement(c, t)
		if err != nil {
			return observation{}, err
		}
		misses := 0
		o := observation{}
		for _, name := range sortedKeys(c.Values) {
			current, err := e.CSSProperty(ctx, name)
			if err != nil {
				return observation{}, xerrors.Errorf("failed to get css property %s of %s: %w", name, t.Name(), err)
			}
			op := "=="
			if current != c.Values[name] {
				misses++
				op = "!="
			}
			o.details = append(o.details, fmt.Sprintf("%s: %s %s %s", name, c.Values[name], op, current))
		}
		o.verdict = allOrNone(misses, len(c.Values))
		return o, nil

	case CountElements:
		e, err := asElement(c, t)
		if err != nil {
			return observation{}, err
		}
		n, err := e.Count(ctx)
		if err != nil {
			return observation{}, xerrors.Errorf("failed to count %s: %w", t.Name(), err)
		}
		return observation{verdict: verdictOf(n == c.Count), actual: fmt.Sprint(n)}, nil

	case Size:
		e, err := asElement(c, t)
		if err != nil {
			return observation{}, err
		}
		box, err := e.Box(ctx)
		if err != nil {
			return observation{}, xerrors.Errorf("failed to get size of %s: %w", t.Name(), err)
		}
		w, h := int(math.Round(box.Width)), int(math.Round(box.Height))
		ok := (c.Width == nil || *c.Width == w) && (c.Height == nil || *c.Height == h)
		return observation{verdict: verdictOf(ok), actual: fmt.Sprintf("%dx%d", w, h)}, nil

	case Coordinates:
		e, err := asElement(c, t)
		if err != nil {
			return observation{}, err
		}
		box, err := e.Box(ctx)
		if err != nil {
			return observation{}, xerrors.Errorf("failed to get coordinates of %s: %w", t.Name(), err)
		}
		x, y := int(math.Round(box.X)), int(math.Round(box.Y))
		return observation{verdict: verdictOf(x == c.X && y == c.Y), actual: fmt.Sprintf("%dx%d", x, y)}, nil

	case Displayed, Hidden, Present, Enabled, Disabled, Readonly, Active:
		e, err := asElement(c, t)
		if err != nil {
			return observation{}, err
		}
		state, err := elementState(ctx, c, e)
		if err != nil {
			return observation{}, xerrors.Errorf("failed to get state of %s: %w", t.Name(), err)
		}
		return observation{verdict: verdictOf(state)}, nil

	case URLExact, URLContains:
		b, err := asBrowser(c, t)
		if err != nil {
			return observation{}, err
		}
		url, err := b.URL(ctx)
		if err != nil {
			return observation{}, xerrors.Errorf("failed to get url: %w", err)
		}
		if e, ok := c.(URLExact); ok {
			return observation{verdict: verdictOf(url == e.URL), actual: url}, nil
		}
		return observation{verdict: verdictOf(strings.Contains(url, c.(URLContains).Text)), actual: url}, nil

	case TitleExact, TitleContains:
		b, err := asBrowser(c, t)
		if err != nil {
			return observation{}, err
		}
		title, err := b.Title(ctx)
		if err != nil {
			return observation{}, xerrors.Errorf("failed to get title: %w", err)
		}
		if e, ok := c.(TitleExact); ok {
			return observation{verdict: verdictOf(title == e.Title), actual: title}, nil
		}
		return observation{verdict: verdictOf(strings.Contains(title, c.(TitleContains).Text)), actual: title}, nil

	case CountWindows:
		b, err := asBrowser(c, t)
		if err != nil {
			return observation{}, err
		}
		n, err := b.WindowCount(ctx)
		if err != nil {
			return observation{}, xerrors.Errorf("failed to count windows: %w", err)
		}
		return observation{verdict: verdictOf(n == c.Count), actual: fmt.Sprint(n)}, nil

	case CountFrames:
		b, err := asBrowser(c, t)
		if err != nil {
			return observation{}, err
		}
		n, err := b.FrameCount(ctx)
		if err != nil {
			return observation{}, xerrors.Errorf("failed to count frames: %w", err)
		}
		return observation{verdict: verdictOf(n == c.Count), actual: fmt.Sprint(n)}, nil

	default:
		return observation{}, xerrors.Errorf("unsupported condition %T: %w", c, ErrInvalidCondition)
	}
}

func matchText(c Condition, text string) bool {
	switch c := c.(type) {
	case ExactText:
		return text == c.Text
	case ExactTextIgnoringCase:
		return strings.EqualFold(text, c.Text)
	case ContainsText:
		return strings.Contains(text, c.Text)
	case TextIgnoringCase:
		return strings.Contains(strings.ToLower(text), strings.ToLower(c.Text))
	case MatchRegex:
		return regexp.MustCompile(c.Pattern).MatchString(text)
	case Empty:
		return text == ""
	default:
		return false
	}
}

func elementState(ctx context.Context, c Condition, e Element) (bool, error) {
	switch c.(type) {
	case Displayed:
		return e.IsDisplayed(ctx)
	case Hidden:
		displayed, err := e.IsDisplayed(ctx)
		return !displayed, err
	case Present:
		return e.IsPresent(ctx)
	case Enabled:
		return e.IsEnabled(ctx)
	case Disabled:
		enabled, err := e.IsEnabled(ctx)
		return !enabled, err
	case Readonly:
		return e.IsReadonly(ctx)
	case Active:
		return e.IsActive(ctx)
	default:
		return false, xerrors.Errorf("unsupported state %T: %w", c, ErrInvalidCondition)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
