package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"ui-regression/internal/diff/image"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"
)

const (
	StorageBackendFile = "file"
	StorageBackendS3   = "s3"
)

// Config is built once at process start and passed to every constructor.
type Config struct {
	Tolerance             float64
	AntiAliasingTolerance float64
	ColorSpace            image.ColorSpace
	AntiAliasing          bool
	HighlightDiff         bool
	// GenerateImage stores every capture as the new baseline without comparing.
	GenerateImage bool

	ImageDir  string
	ReportDir string

	DeviceName        string
	BrowserResolution string
	RegressionTheme   string
	MobileEmulation   bool

	WaitElementLoad time.Duration
	PollInterval    time.Duration

	StorageBackend string
	S3Bucket       string
	S3Prefix       string
	S3EndpointURL  string
}

func Default() Config {
	return Config{
		Tolerance:             2.3,
		AntiAliasingTolerance: 10,
		ColorSpace:            image.ColorSpaceCIEDE2000,
		AntiAliasing:          true,
		HighlightDiff:         true,
		ImageDir:              "./standards",
		ReportDir:             "./artifacts/regression",
		DeviceName:            "chrome",
		WaitElementLoad:       5 * time.Second,
		PollInterval:          100 * time.Millisecond,
		StorageBackend:        StorageBackendFile,
	}
}

// Load reads the optional dotenv file at path and the process environment over the defaults.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	s := source{}
	if path != "" {
		values, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.Errorf("failed to read config file %s: %w", path, err)
		}
		s.file = values
	}

	d := Default()
	c := &Config{}
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	c.Tolerance, err = valueOrDefault(s, "TOLERANCE", d.Tolerance)
	collect(err)
	c.AntiAliasingTolerance, err = valueOrDefault(s, "ANTIALIASING_TOLERANCE", d.AntiAliasingTolerance)
	collect(err)
	colorSpace, err := valueOrDefault(s, "COLOR_SPACE", string(d.ColorSpace))
	collect(err)
	c.ColorSpace, err = image.ParseColorSpace(colorSpace)
	collect(err)
	c.AntiAliasing, err = valueOrDefault(s, "ANTIALIASING", d.AntiAliasing)
	collect(err)
	c.HighlightDiff, err = valueOrDefault(s, "HIGHLIGHT_DIFF", d.HighlightDiff)
	collect(err)
	c.GenerateImage, err = valueOrDefault(s, "GENERATE_IMAGE", d.GenerateImage)
	collect(err)
	c.ImageDir, err = valueOrDefault(s, "IMAGE_DIR", d.ImageDir)
	collect(err)
	c.ReportDir, err = valueOrDefault(s, "REPORT_DIR", d.ReportDir)
	collect(err)
	c.DeviceName, err = valueOrDefault(s, "DEVICE_NAME", d.DeviceName)
	collect(err)
	c.BrowserResolution, err = valueOrDefault(s, "BROWSER_RESOLUTION", d.BrowserResolution)
	collect(err)
	c.RegressionTheme, err = valueOrDefault(s, "REGRESSION_THEME", d.RegressionTheme)
	collect(err)
	c.MobileEmulation, err = valueOrDefault(s, "CHROME_MOBILE_EMULATION", d.MobileEmulation)
	collect(err)
	c.WaitElementLoad, err = valueOrDefault(s, "WAIT_ELEMENT_LOAD", d.WaitElementLoad)
	collect(err)
	c.PollInterval, err = valueOrDefault(s, "POLL_INTERVAL", d.PollInterval)
	collect(err)
	c.StorageBackend, err = valueOrDefault(s, "STORAGE_BACKEND", d.StorageBackend)
	collect(err)
	c.S3Bucket, err = valueOrDefault(s, "S3_BUCKET", d.S3Bucket)
	collect(err)
	c.S3Prefix, err = valueOrDefault(s, "S3_PREFIX", d.S3Prefix)
	collect(err)
	c.S3EndpointURL, err = valueOrDefault(s, "S3_ENDPOINT_URL", d.S3EndpointURL)
	collect(err)

	if err := errors.Join(errs...); err != nil {
		return nil, xerrors.Errorf("failed to load config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Tolerance < 0 {
		return xerrors.Errorf("TOLERANCE must not be negative: %f", c.Tolerance)
	}
	if c.AntiAliasingTolerance < 0 {
		return xerrors.Errorf("ANTIALIASING_TOLERANCE must not be negative: %f", c.AntiAliasingTolerance)
	}
	if _, err := c.ColorSpace.Distance(); err != nil {
		return xerrors.Errorf("invalid COLOR_SPACE: %w", err)
	}
	if c.PollInterval <= 0 {
		return xerrors.Errorf("POLL_INTERVAL must be positive: %s", c.PollInterval)
	}
	switch c.StorageBackend {
	case StorageBackendFile:
	case StorageBackendS3:
		if c.S3Bucket == "" {
			return xerrors.New("S3_BUCKET is required for the s3 storage backend")
		}
	default:
		return xerrors.Errorf("unknown STORAGE_BACKEND: %s", c.StorageBackend)
	}
	return nil
}

// DiffOptions returns the pixel diff options selected by the configuration.
func (c *Config) DiffOptions() image.Options {
	return image.Options{
		Tolerance:             c.Tolerance,
		AntiAliasing:          c.AntiAliasing,
		AntiAliasingTolerance: c.AntiAliasingTolerance,
		ColorSpace:            c.ColorSpace,
		HighlightDiff:         c.HighlightDiff,
	}
}

// FileSuffix is the device, theme and resolution part of baseline file names, e.g. "chrome_dark_1920_1080".
func (c *Config) FileSuffix() string {
	name := c.DeviceName
	if c.RegressionTheme != "" {
		name += "_" + c.RegressionTheme
	}
	if c.BrowserResolution != "" {
		name += "_" + strings.ReplaceAll(c.BrowserResolution, "x", "_")
	}
	return name
}

type source struct {
	file map[string]string
}

func (s source) lookup(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok {
		return value, true
	}
	value, ok := s.file[key]
	return value, ok
}

func valueOrDefault[T any](s source, key string, defaultValue T) (T, error) {
	value, exists := s.lookup(key)
	if !exists {
		return defaultValue, nil
	}
	value = strings.TrimSpace(value)

	var parsed any
	var err error
	switch any(defaultValue).(type) {
	case string:
		parsed = value
	case int:
		parsed, err = strconv.Atoi(value)
	case float64:
		parsed, err = strconv.ParseFloat(value, 64)
	case bool:
		parsed, err = strconv.ParseBool(value)
	case time.Duration:
		parsed, err = parseDuration(value)
	default:
		return defaultValue, xerrors.Errorf("unsupported type %T of %s", defaultValue, key)
	}
	if err != nil {
		return defaultValue, xerrors.Errorf("invalid %s=%q: %w", key, value, err)
	}
	return parsed.(T), nil
}

// parseDuration accepts Go durations and plain numbers of seconds.
func parseDuration(value string) (time.Duration, error) {
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return time.ParseDuration(value)
}
