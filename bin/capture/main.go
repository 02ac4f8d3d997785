package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"image"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	"ui-regression/internal/capture"
	"ui-regression/internal/config"
	"ui-regression/internal/regression"
	"ui-regression/internal/retry"
	"ui-regression/internal/runnable"
	"ui-regression/internal/should"
	"ui-regression/internal/storage"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	"golang.org/x/xerrors"
)

type CheckResult struct {
	Name       string  `json:"name"`
	Equal      bool    `json:"equal"`
	Message    string  `json:"message,omitempty"`
	Standard   string  `json:"standard,omitempty"`
	Current    string  `json:"current,omitempty"`
	Diff       string  `json:"diff,omitempty"`
	DiffAmount float64 `json:"diffAmount,omitempty"`
}

type headers []string

func (h *headers) String() string {
	return strings.Join(*h, ", ")
}

func (h *headers) Set(value string) error {
	*h = append(*h, value)
	return nil
}

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case int:
		if intValue, err := strconv.Atoi(value); err == nil {
			return any(intValue).(T)
		}
	case time.Duration:
		if durationValue, err := time.ParseDuration(value); err == nil {
			return any(durationValue).(T)
		}
	}

	return defaultValue
}

type options struct {
	url        string
	selector   string
	fillRects  []image.Rectangle
	fills      []string
	check      regression.Check
	playwright capture.PlaywrightConfig
}

func main() {
	var configPath string
	var schedule string
	var fillRects string
	var fillSelectors string
	var headers headers
	o := options{
		playwright: capture.DefaultPlaywrightConfig(),
	}
	flag.StringVar(&configPath, "config", envOrDefaultValue("CONFIG", ""), "Path to a KEY=VALUE config file")
	flag.StringVar(&schedule, "schedule", envOrDefaultValue("SCHEDULE", ""), "Cron expression to repeat the check on (e.g. '*/30 * * * *')")
	flag.StringVar(&o.check.Name, "name", envOrDefaultValue("NAME", "page"), "Baseline name")
	flag.StringVar(&o.check.Suite, "suite", envOrDefaultValue("SUITE", ""), "Suite the baseline belongs to")
	flag.StringVar(&o.check.Test, "test", envOrDefaultValue("TEST", ""), "Test the baseline belongs to")
	flag.StringVar(&o.selector, "selector", envOrDefaultValue("SELECTOR", ""), "CSS selector of the element to capture")
	flag.IntVar(&o.check.Width, "width", 0, "Width of the captured area")
	flag.IntVar(&o.check.Height, "height", 0, "Height of the captured area")
	flag.IntVar(&o.check.Left, "left", 0, "Left offset, or left margin with -selector")
	flag.IntVar(&o.check.Top, "top", 0, "Top offset, or top margin with -selector")
	flag.IntVar(&o.check.Right, "right", 0, "Right margin with -selector")
	flag.IntVar(&o.check.Bottom, "bottom", 0, "Bottom margin with -selector")
	flag.BoolVar(&o.check.Fill, "fill", false, "Paint outside the area black instead of cropping")
	flag.StringVar(&fillRects, "fill-rects", "", "Semicolon-separated x,y,width,height rectangles to erase from the element")
	flag.StringVar(&fillSelectors, "fill-selectors", "", "Comma-separated CSS selectors of sub-elements to erase from the element")
	flag.Float64Var(&o.check.Tolerance, "tolerance", 0, "Tolerance override for this check")
	flag.StringVar(&o.check.Message, "message", "", "Message of the regression error")
	flag.DurationVar(&o.playwright.Delay, "delay", envOrDefaultValue("DELAY", o.playwright.Delay), "Delay before capturing")
	flag.IntVar(&o.playwright.ViewportWidth, "viewport-width", envOrDefaultValue("VIEWPORT_WIDTH", o.playwright.ViewportWidth), "Viewport width in pixels")
	flag.IntVar(&o.playwright.ViewportHeight, "viewport-height", envOrDefaultValue("VIEWPORT_HEIGHT", o.playwright.ViewportHeight), "Viewport height in pixels")
	flag.StringVar(&o.playwright.UserAgent, "user-agent", envOrDefaultValue("USER_AGENT", ""), "User-Agent string to use for requests")
	flag.StringVar(&o.playwright.ChromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", envOrDefaultValue("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.Var(&headers, "H", "Add HTTP header (can be used multiple times, e.g., -H 'Accept: text/html' -H 'Authorization: Bearer token')")
	flag.BoolVar(&runnable.Debug, "debug", false, "Enable text logging")

	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		log.Fatalf("url not specified")
	}
	o.url = args[0]

	var err error
	o.fillRects, err = parseRectangles(fillRects)
	if err != nil {
		log.Fatalf("Invalid fill rectangles: %v", err)
	}
	o.fills = splitList(fillSelectors)
	if display := os.Getenv("DISPLAY"); display != "" {
		o.playwright.Headless = false
	}
	if len(headers) > 0 {
		o.playwright.Headers = make(map[string]string)
		for _, header := range headers {
			parts := strings.SplitN(header, ":", 2)
			if len(parts) == 2 {
				o.playwright.Headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
			}
		}
	}

	c, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := runnable.NewLogger(runnable.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	l := runnable.NewLogr(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	if schedule == "" {
		result, err := run(ctx, c, o, l)
		if err != nil {
			log.Fatalf("Failed to run check: %v", err)
		}
		if !result.Equal {
			os.Exit(1)
		}
		return
	}

	if err := loop(ctx, schedule, c, o, l); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Scheduled checks failed: %v", err)
	}
}

// loop runs the check at every activation of schedule until ctx is done.
func loop(ctx context.Context, expr string, c *config.Config, o options, l logr.Logger) error {
	schedule, err := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(expr)
	if err != nil {
		return xerrors.Errorf("failed to parse schedule: %w", err)
	}

	for {
		next := schedule.Next(time.Now())
		l.Info("next check scheduled", "name", o.check.Name, "at", next)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := run(ctx, c, o, l); err != nil {
			l.Error(err, "scheduled check failed", "name", o.check.Name)
		}
	}
}

func run(ctx context.Context, c *config.Config, o options, l logr.Logger) (*CheckResult, error) {
	s3Config := storage.S3Config{
		Bucket:      c.S3Bucket,
		Prefix:      c.S3Prefix,
		EndpointURL: c.S3EndpointURL,
	}
	standards, err := storage.New(ctx, c.StorageBackend, c.ImageDir, s3Config)
	if err != nil {
		return nil, xerrors.Errorf("failed to create standards storage: %w", err)
	}
	reports, err := storage.New(ctx, c.StorageBackend, c.ReportDir, s3Config)
	if err != nil {
		return nil, xerrors.Errorf("failed to create reports storage: %w", err)
	}

	session, err := capture.Launch(ctx, o.playwright)
	if err != nil {
		return nil, xerrors.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			l.Error(err, "failed to close browser")
		}
	}()

	if err := session.Open(ctx, o.url); err != nil {
		return nil, err
	}
	driver := session.Driver()

	check := o.check
	if o.selector != "" {
		element := driver.Element(check.Name, o.selector)
		poller := should.NewPoller(c.WaitElementLoad, retry.NewConstant(c.PollInterval, 0), l)
		if err := poller.Be(ctx, element, should.Displayed{}); err != nil {
			l.Error(err, "element is not displayed, capturing anyway", "selector", o.selector)
		}
		check.Element = element
		check.FillRects = o.fillRects
		for i, selector := range o.fills {
			check.FillElements = append(check.FillElements, driver.Element(check.Name+"-fill-"+strconv.Itoa(i), selector))
		}
	}

	comparer, err := regression.NewComparer(c, driver, standards, reports, l)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		Name: check.Name,
	}
	equal, err := comparer.Compare(ctx, check)
	var regressionErr *regression.RegressionError
	switch {
	case err == nil:
		result.Equal = equal
	case errors.As(err, &regressionErr):
		result.Message = regressionErr.Message
		result.Standard = regressionErr.Src
		result.Current = regressionErr.Current
		result.Diff = regressionErr.Diff
		result.DiffAmount = regressionErr.DiffAmount
	default:
		return nil, err
	}

	if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
		return nil, xerrors.Errorf("failed to encode result: %w", err)
	}
	return result, nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseRectangles parses "x,y,width,height;x,y,width,height".
func parseRectangles(s string) ([]image.Rectangle, error) {
	var rects []image.Rectangle
	for _, part := range strings.Split(s, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) != 4 {
			return nil, xerrors.Errorf("expected x,y,width,height: %q", part)
		}
		var v [4]int
		for i, f := range fields {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, xerrors.Errorf("invalid number %q: %w", f, err)
			}
			v[i] = n
		}
		rects = append(rects, image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]))
	}
	return rects, nil
}
