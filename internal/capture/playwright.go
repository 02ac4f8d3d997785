package capture

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"
	"ui-regression/internal/should"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/xerrors"
)

// ErrNotFound is returned by element operations when the locator matches nothing.
var ErrNotFound = xerrors.Errorf("element not found: %w", should.ErrNotFound)

var (
	_ Driver         = (*PlaywrightDriver)(nil)
	_ should.Browser = (*PlaywrightDriver)(nil)
	_ Element        = (*PlaywrightElement)(nil)
	_ should.Element = (*PlaywrightElement)(nil)
)

type PlaywrightConfig struct {
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	Headers        map[string]string

	// Timeout bounds navigation.
	Timeout time.Duration
	// ActionTimeout bounds a single element query so that polling is never blocked by playwright's own waiting.
	ActionTimeout time.Duration
	Delay         time.Duration

	Headless                  bool
	ChromeDevtoolsProtocolURL string
}

func DefaultPlaywrightConfig() PlaywrightConfig {
	return PlaywrightConfig{
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Timeout:        30 * time.Second,
		ActionTimeout:  time.Second,
		Delay:          time.Second,
		Headless:       true,
	}
}

// Session owns a playwright process, a browser and one page.
type Session struct {
	config  PlaywrightConfig
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	// connected browsers are left running on Close.
	connected bool
}

func Launch(ctx context.Context, c PlaywrightConfig) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, xerrors.Errorf("failed to start playwright: %w", err)
	}

	s := &Session{
		config: c,
		pw:     pw,
	}

	if c.ChromeDevtoolsProtocolURL == "" {
		s.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(c.Headless),
		})
		if err != nil {
			_ = pw.Stop()
			return nil, xerrors.Errorf("failed to launch browser: %w", err)
		}
	} else {
		s.browser, err = pw.Chromium.ConnectOverCDP(c.ChromeDevtoolsProtocolURL)
		if err != nil {
			_ = pw.Stop()
			return nil, xerrors.Errorf("failed to connect to browser via CDP at %s: %w", c.ChromeDevtoolsProtocolURL, err)
		}
		s.connected = true
	}

	options := playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{
			Width:  c.ViewportWidth,
			Height: c.ViewportHeight,
		},
	}
	if c.UserAgent != "" {
		options.UserAgent = playwright.String(c.UserAgent)
	}
	if len(c.Headers) > 0 {
		options.ExtraHttpHeaders = c.Headers
	}

	s.page, err = s.browser.NewPage(options)
	if err != nil {
		_ = s.Close()
		return nil, xerrors.Errorf("failed to create new page: %w", err)
	}

	return s, nil
}

// Open navigates to url and waits for the configured delay.
func (s *Session) Open(ctx context.Context, url string) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = s.page.Close()
		case <-done:
		}
	}()
	defer close(done)

	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.config.Timeout.Milliseconds())),
	}); err != nil {
		return xerrors.Errorf("failed to navigate to %s: %w", url, err)
	}

	if s.config.Delay > 0 {
		select {
		case <-time.After(s.config.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Session) Driver() *PlaywrightDriver {
	return &PlaywrightDriver{
		page:          s.page,
		actionTimeout: s.config.ActionTimeout,
	}
}

func (s *Session) Close() error {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil && !s.connected {
		_ = s.browser.Close()
	}
	if err := s.pw.Stop(); err != nil {
		return xerrors.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// PlaywrightDriver captures a page and answers browser-level conditions about it.
type PlaywrightDriver struct {
	page          playwright.Page
	actionTimeout time.Duration
}

func (d *PlaywrightDriver) Name() string {
	return "browser"
}

func (d *PlaywrightDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to take screenshot: %w", err)
	}
	return b, nil
}

func (d *PlaywrightDriver) DevicePixelRatio(ctx context.Context) (float64, error) {
	v, err := d.page.Evaluate("() => window.devicePixelRatio")
	if err != nil {
		return 0, xerrors.Errorf("failed to get device pixel ratio: %w", err)
	}
	return toFloat(v)
}

func (d *PlaywrightDriver) URL(ctx context.Context) (string, error) {
	return d.page.URL(), nil
}

func (d *PlaywrightDriver) Title(ctx context.Context) (string, error) {
	title, err := d.page.Title()
	if err != nil {
		return "", xerrors.Errorf("failed to get title: %w", err)
	}
	return title, nil
}

func (d *PlaywrightDriver) WindowCount(ctx context.Context) (int, error) {
	return len(d.page.Context().Pages()), nil
}

func (d *PlaywrightDriver) FrameCount(ctx context.Context) (int, error) {
	// the main frame is not counted
	return len(d.page.Frames()) - 1, nil
}

// Element returns the elements matching selector, named name in messages.
func (d *PlaywrightDriver) Element(name string, selector string) *PlaywrightElement {
	return &PlaywrightElement{
		name:     name,
		selector: selector,
		locator:  d.page.Locator(selector),
		timeout:  playwright.Float(float64(d.actionTimeout.Milliseconds())),
	}
}

// PlaywrightElement is a lazily resolved locator. Single-element queries use the first match.
type PlaywrightElement struct {
	name     string
	selector string
	locator  playwright.Locator
	timeout  *float64
}

func (e *PlaywrightElement) Name() string {
	return e.name
}

func (e *PlaywrightElement) Locator() string {
	return fmt.Sprintf("locator: %s", e.selector)
}

// first resolves the first match or fails with ErrNotFound.
func (e *PlaywrightElement) first(ctx context.Context) (playwright.Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := e.locator.Count()
	if err != nil {
		return nil, xerrors.Errorf("failed to count %s: %w", e.selector, err)
	}
	if n == 0 {
		return nil, xerrors.Errorf("%s: %w", e.selector, ErrNotFound)
	}
	return e.locator.First(), nil
}

func (e *PlaywrightElement) Bounds(ctx context.Context) (image.Rectangle, error) {
	box, err := e.Box(ctx)
	if err != nil {
		return image.Rectangle{}, err
	}
	x, y := int(math.Round(box.X)), int(math.Round(box.Y))
	return image.Rect(x, y, x+int(math.Round(box.Width)), y+int(math.Round(box.Height))), nil
}

func (e *PlaywrightElement) Screenshot(ctx context.Context) ([]byte, error) {
	l, err := e.first(ctx)
	if err != nil {
		return nil, err
	}
	b, err := l.Screenshot(playwright.LocatorScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: e.timeout,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to take screenshot of %s: %w", e.selector, err)
	}
	return b, nil
}

func (e *PlaywrightElement) Text(ctx context.Context) (string, error) {
	l, err := e.first(ctx)
	if err != nil {
		return "", err
	}
	text, err := l.InnerText(playwright.LocatorInnerTextOptions{Timeout: e.timeout})
	if err != nil {
		return "", xerrors.Errorf("failed to get text of %s: %w", e.selector, err)
	}
	return text, nil
}

func (e *PlaywrightElement) Attribute(ctx context.Context, name string) (string, error) {
	l, err := e.first(ctx)
	if err != nil {
		return "", err
	}
	value, err := l.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: e.timeout})
	if err != nil {
		return "", xerrors.Errorf("failed to get attribute %s of %s: %w", name, e.selector, err)
	}
	return value, nil
}

func (e *PlaywrightElement) CSSProperty(ctx context.Context, name string) (string, error) {
	v, err := e.evaluate(ctx, "(el, name) => getComputedStyle(el).getPropertyValue(name)", name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", xerrors.Errorf("unexpected value of css property %s: %v", name, v)
	}
	return s, nil
}

func (e *PlaywrightElement) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := e.locator.Count()
	if err != nil {
		return 0, xerrors.Errorf("failed to count %s: %w", e.selector, err)
	}
	return n, nil
}

func (e *PlaywrightElement) Box(ctx context.Context) (should.Box, error) {
	l, err := e.first(ctx)
	if err != nil {
		return should.Box{}, err
	}
	r, err := l.BoundingBox(playwright.LocatorBoundingBoxOptions{Timeout: e.timeout})
	if err != nil {
		return should.Box{}, xerrors.Errorf("failed to get bounding box of %s: %w", e.selector, err)
	}
	if r == nil {
		return should.Box{}, xerrors.Errorf("%s is not rendered: %w", e.selector, ErrNotFound)
	}
	return should.Box{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}, nil
}

func (e *PlaywrightElement) IsDisplayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := e.locator.First().IsVisible()
	if err != nil {
		return false, xerrors.Errorf("failed to check visibility of %s: %w", e.selector, err)
	}
	return visible, nil
}

func (e *PlaywrightElement) IsPresent(ctx context.Context) (bool, error) {
	n, err := e.Count(ctx)
	return n > 0, err
}

func (e *PlaywrightElement) IsEnabled(ctx context.Context) (bool, error) {
	l, err := e.first(ctx)
	if err != nil {
		return false, err
	}
	enabled, err := l.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: e.timeout})
	if err != nil {
		return false, xerrors.Errorf("failed to check whether %s is enabled: %w", e.selector, err)
	}
	return enabled, nil
}

func (e *PlaywrightElement) IsReadonly(ctx context.Context) (bool, error) {
	v, err := e.evaluate(ctx, "el => el.readOnly === true || el.hasAttribute('readonly')", nil)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (e *PlaywrightElement) IsActive(ctx context.Context) (bool, error) {
	v, err := e.evaluate(ctx, "el => el === document.activeElement", nil)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (e *PlaywrightElement) evaluate(ctx context.Context, expression string, arg interface{}) (interface{}, error) {
	l, err := e.first(ctx)
	if err != nil {
		return nil, err
	}
	v, err := l.Evaluate(expression, arg, playwright.LocatorEvaluateOptions{Timeout: e.timeout})
	if err != nil {
		return nil, xerrors.Errorf("failed to evaluate on %s: %w", e.selector, err)
	}
	return v, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, xerrors.Errorf("unexpected number: %v", v)
	}
}
