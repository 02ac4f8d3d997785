package should_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"ui-regression/internal/retry"
	"ui-regression/internal/should"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
)

type fakeElement struct {
	name       string
	locator    string
	text       func() (string, error)
	attributes map[string]string
	properties map[string]string
	count      int
	box        should.Box
	displayed  bool
	present    bool
	enabled    bool
	readonly   bool
	active     bool
	calls      atomic.Int64
}

func (e *fakeElement) Name() string { return e.name }
func (e *fakeElement) Locator() string { return e.locator }

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	e.calls.Add(1)
	if e.text == nil {
		return "", nil
	}
	return e.text()
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, error) {
	return e.attributes[name], nil
}

func (e *fakeElement) CSSProperty(ctx context.Context, name string) (string, error) {
	return e.properties[name], nil
}

func (e *fakeElement) Count(ctx context.Context) (int, error) { return e.count, nil }
func (e *fakeElement) Box(ctx context.Context) (should.Box, error) { return e.box, nil }
func (e *fakeElement) IsDisplayed(ctx context.Context) (bool, error) { return e.displayed, nil }
func (e *fakeElement) IsPresent(ctx context.Context) (bool, error) { return e.present, nil }
func (e *fakeElement) IsEnabled(ctx context.Context) (bool, error) { return e.enabled, nil }
func (e *fakeElement) IsReadonly(ctx context.Context) (bool, error) { return e.readonly, nil }
func (e *fakeElement) IsActive(ctx context.Context) (bool, error) { return e.active, nil }

type fakeBrowser struct {
	url     string
	title   string
	windows int
	frames  int
}

func (b *fakeBrowser) Name() string { return "browser" }
func (b *fakeBrowser) URL(ctx context.Context) (string, error) { return b.url, nil }
func (b *fakeBrowser) Title(ctx context.Context) (string, error) { return b.title, nil }
func (b *fakeBrowser) WindowCount(ctx context.Context) (int, error) { return b.windows, nil }
func (b *fakeBrowser) FrameCount(ctx context.Context) (int, error) { return b.frames, nil }

func staticText(s string) func() (string, error) {
	return func() (string, error) { return s, nil }
}

func newPoller() *should.Poller {
	return should.NewPoller(200*time.Millisecond, retry.NewConstant(10*time.Millisecond, 0), logr.Discard())
}

func TestShould(t *testing.T) {
	element := &fakeElement{
		name:       "button",
		locator:    "css=#submit",
		text:       staticText("Submit form"),
		attributes: map[string]string{"class": "btn btn-primary", "type": "submit"},
		properties: map[string]string{"color": "red", "display": "block"},
		count:      3,
		box:        should.Box{X: 10.2, Y: 20.4, Width: 99.6, Height: 30},
		displayed:  true,
		present:    true,
		enabled:    true,
	}
	browser := &fakeBrowser{
		url:     "https://example.com/login?next=/",
		title:   "Sign in",
		windows: 2,
		frames:  1,
	}

	type in struct {
		target     should.Target
		expect     bool
		conditions []should.Condition
	}

	tests := []struct {
		name string
		in   in
		want bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.ExactText{Text: "Submit form"}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.ExactTextIgnoringCase{Text: "SUBMIT FORM"}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.ContainsText{Text: "form"}, should.TextIgnoringCase{Text: "SUBMIT"}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.MatchRegex{Pattern: `^Sub\w+`}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.CSSClass{Class: "btn-primary"}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.CSSClass{Class: "btn-"}}},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.Attribute{Values: map[string]string{"type": "submit"}}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.Attribute{Values: map[string]string{"type": "submit", "class": "btn"}}}},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, false, []should.Condition{should.Attribute{Values: map[string]string{"type": "submit", "class": "btn"}}}},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, false, []should.Condition{should.Attribute{Values: map[string]string{"type": "reset", "class": "btn"}}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.Attribute{Values: map[string]string{"type": "reset", "class": "btn"}}}},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.CSSProperty{Values: map[string]string{"color": "red", "display": "block"}}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.CSSProperty{Values: map[string]string{"color": "red", "display": "none"}}}},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, false, []should.Condition{should.CSSProperty{Values: map[string]string{"color": "red", "display": "none"}}}},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.CountElements{Count: 3}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.SizeOf(100, 30), should.Width(100), should.Height(30)}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.Coordinates{X: 10, Y: 20}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.Displayed{}, should.Present{}, should.Enabled{}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, false, []should.Condition{should.Hidden{}, should.Disabled{}, should.Readonly{}, should.Active{}, should.Empty{}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, true, []should.Condition{should.Not{Condition: should.Hidden{}}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{element, false, []should.Condition{should.Not{Condition: should.Not{Condition: should.Hidden{}}}}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{browser, true, []should.Condition{
				should.URLExact{URL: "https://example.com/login?next=/"},
				should.URLContains{Text: "/login"},
				should.TitleExact{Title: "Sign in"},
				should.TitleContains{Text: "Sign"},
				should.CountWindows{Count: 2},
				should.CountFrames{Count: 1},
			}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{browser, false, []should.Condition{should.CountWindows{Count: 1}}},
			true,
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := newPoller().Should(context.Background(), in.target, should.Check{Expect: in.expect, Timeout: 30 * time.Millisecond}, in.conditions...)
			if diff := cmp.Diff(want, err == nil); diff != "" {
				t.Errorf("(-want +got):\n%s\nerror: %v", diff, err)
			}
		})
	}
}

func TestShould_InvalidCondition(t *testing.T) {
	element := &fakeElement{name: "field"}
	browser := &fakeBrowser{}

	tests := []struct {
		name       string
		target     should.Target
		conditions []should.Condition
	}{
		{"NoConditions", element, nil},
		{"EmptyContainsText", element, []should.Condition{should.ContainsText{}}},
		{"InvalidRegex", element, []should.Condition{should.MatchRegex{Pattern: "("}}},
		{"SizeWithoutDimensions", element, []should.Condition{should.Size{}}},
		{"NoAttributes", element, []should.Condition{should.Attribute{}}},
		{"NegatedEmptyCSSProperty", element, []should.Condition{should.Not{Condition: should.CSSProperty{}}}},
		{"ElementConditionOnBrowser", browser, []should.Condition{should.Displayed{}}},
		{"BrowserConditionOnElement", element, []should.Condition{should.URLExact{URL: "/"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			err := newPoller().Be(context.Background(), tt.target, tt.conditions...)
			if !errors.Is(err, should.ErrInvalidCondition) {
				t.Fatalf("expected ErrInvalidCondition, got %v", err)
			}
			if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
				t.Errorf("invalid condition was polled for %s", elapsed)
			}
		})
	}
}

func TestShould_Deadline(t *testing.T) {
	t.Parallel()

	element := &fakeElement{name: "title", text: staticText("Hello")}
	p := should.NewPoller(time.Second, retry.NewConstant(100*time.Millisecond, 0), logr.Discard())

	start := time.Now()
	err := p.Be(context.Background(), element, should.ExactText{Text: "Bye"})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed < time.Second || elapsed > time.Second+500*time.Millisecond {
		t.Errorf("expected to give up after about one second, took %s", elapsed)
	}
	if calls := element.calls.Load(); calls < 5 || calls > 12 {
		t.Errorf("expected about ten evaluations, got %d", calls)
	}
}

func TestShould_SingleEvaluation(t *testing.T) {
	element := &fakeElement{name: "title", text: staticText("Hello")}

	err := newPoller().Should(context.Background(), element, should.Check{Expect: true, Timeout: 0}, should.ExactText{Text: "Bye"})
	if err == nil {
		t.Fatal("expected error")
	}
	if diff := cmp.Diff(int64(1), element.calls.Load()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestShould_EventuallyMatches(t *testing.T) {
	var n atomic.Int64
	element := &fakeElement{name: "status", text: func() (string, error) {
		if n.Add(1) < 3 {
			return "", fmt.Errorf("not ready: %w", should.ErrNotFound)
		}
		return "done", nil
	}}

	if err := newPoller().Be(context.Background(), element, should.ExactText{Text: "done"}); err != nil {
		t.Fatal(err)
	}
}

func TestShould_NegativeShortCircuit(t *testing.T) {
	element := &fakeElement{name: "popup", text: func() (string, error) {
		return "", fmt.Errorf("locate popup: %w", should.ErrNotFound)
	}}
	p := should.NewPoller(5*time.Second, nil, logr.Discard())

	start := time.Now()
	if err := p.NotBe(context.Background(), element, should.ExactText{Text: "Error"}); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("negative expectation waited %s", elapsed)
	}
	if diff := cmp.Diff(int64(1), element.calls.Load()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	err := p.Should(context.Background(), element, should.Check{Expect: true, Timeout: 0}, should.ExactText{Text: "Error"})
	if !errors.Is(err, should.ErrNotFound) {
		t.Errorf("expected the last error to be kept, got %v", err)
	}
}

func TestShould_ContextCanceled(t *testing.T) {
	element := &fakeElement{name: "title", text: staticText("Hello")}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := should.NewPoller(10*time.Second, nil, logr.Discard())
	err := p.Be(ctx, element, should.ExactText{Text: "Bye"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline, got %v", err)
	}
}

func TestShould_Message(t *testing.T) {
	element := &fakeElement{
		name:    "header",
		locator: "css=h1",
		text:    staticText("Welcome\nGuest"),
		count:   2,
	}

	tests := []struct {
		name      string
		expect    bool
		message   string
		condition should.Condition
		want      string
	}{
		{
			"ExactTextWithLineDiff",
			true,
			"",
			should.ExactText{Text: "Welcome\nAdmin"},
			"text of header does not equal the expected one\nexpected: Welcome\nAdmin\ncurrent:  Welcome\nGuest\n  Welcome\n- Admin\n+ Guest\ncss=h1",
		},
		{
			"AppendsCallerMessage",
			true,
			"header count",
			should.CountElements{Count: 1},
			"header count\nwrong number of elements (header)\nexpected: 1\ncurrent:  2\ncss=h1",
		},
		{
			"NegativeTemplate",
			false,
			"",
			should.CountElements{Count: 2},
			"number of elements (header) should not be 2\ncss=h1",
		},
		{
			"NotSelectsNegativeTemplate",
			true,
			"",
			should.Not{Condition: should.ContainsText{Text: "Guest"}},
			"header should not contain the text\nexpected: Guest\ncurrent:  Welcome\nGuest\ncss=h1",
		},
		{
			"ReplacedByCallerMessage",
			true,
			"header must be shown",
			should.Displayed{},
			"header must be shown\ncss=h1",
		},
		{
			"StateTemplate",
			true,
			"",
			should.Displayed{},
			"header is not displayed\ncss=h1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newPoller().Should(context.Background(), element, should.Check{Expect: tt.expect, Timeout: 0, Message: tt.message}, tt.condition)
			var ce *should.ConditionError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConditionError, got %v", err)
			}
			if diff := cmp.Diff(tt.want, ce.Error()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if !strings.HasPrefix(ce.Error(), ce.Message) {
				t.Errorf("message %q is not the prefix of %q", ce.Message, ce.Error())
			}
		})
	}
}
