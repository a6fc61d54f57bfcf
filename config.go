package firstdraw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"
)

// Program variants.
const (
	VariantTriangle = "triangle"
	VariantQuad     = "quad"
)

// ErrUnknownVariant is returned for a variant other than triangle or quad.
var ErrUnknownVariant = errors.New("firstdraw: unknown variant")

// Run runs the named variant.
func Run(ctx context.Context, variant string, opts ...Option) (*Report, error) {
	switch variant {
	case VariantTriangle:
		return RunTriangle(ctx, opts...)
	case VariantQuad:
		return RunQuad(ctx, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
}

// maxConfigSize bounds the run file.
const maxConfigSize = 1 << 20

// Config is a run file. Zero fields keep the defaults.
type Config struct {
	Variant    string     `yaml:"variant"`     // triangle or quad
	Backend    string     `yaml:"backend"`     // vulkan, noop; empty tries hardware backends
	Width      int        `yaml:"width"`       // surface width in pixels
	Height     int        `yaml:"height"`      // surface height in pixels
	Image      string     `yaml:"image"`       // quad texture, relative to the run file
	Output     string     `yaml:"output"`      // snapshot destination
	ClearColor ClearColor `yaml:"clear_color"` // [r, g, b, a]
	LogLevel   string     `yaml:"log_level"`   // debug, info, warn, error
}

// ClearColor is an RGBA color written as a list of 3 or 4 numbers in [0, 1].
type ClearColor struct {
	gputypes.Color
	Set bool
}

// UnmarshalYAML implements yaml.Unmarshaler for ClearColor.
func (c *ClearColor) UnmarshalYAML(value *yaml.Node) error {
	var v []float64
	if err := value.Decode(&v); err != nil {
		return fmt.Errorf("clear_color: %w", err)
	}
	if len(v) != 3 && len(v) != 4 {
		return fmt.Errorf("clear_color: want 3 or 4 components, got %d", len(v))
	}
	for _, x := range v {
		if math.IsNaN(x) || x < 0 || x > 1 {
			return fmt.Errorf("clear_color: component %v outside [0, 1]", x)
		}
	}
	c.Color = gputypes.Color{R: v[0], G: v[1], B: v[2], A: 1}
	if len(v) == 4 {
		c.A = v[3]
	}
	c.Set = true
	return nil
}

// LoadConfig reads a run file. A relative image path is resolved against
// the run file's directory.
func LoadConfig(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("firstdraw: config: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("firstdraw: config %s too large (%d bytes)", path, info.Size())
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("firstdraw: config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("firstdraw: parse config %s: %w", path, err)
	}
	if cfg.Image != "" && !filepath.IsAbs(cfg.Image) {
		cfg.Image = filepath.Join(filepath.Dir(path), cfg.Image)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("firstdraw: config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	var errs []error
	switch c.Variant {
	case "", VariantTriangle, VariantQuad:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownVariant, c.Variant))
	}
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, fmt.Errorf("negative size %dx%d", c.Width, c.Height))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel. Empty means info.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Options converts the set fields to run options. Output implies
// WithSnapshot.
func (c *Config) Options() []Option {
	var opts []Option
	if c.Backend != "" {
		opts = append(opts, WithBackend(c.Backend))
	}
	if c.Width > 0 || c.Height > 0 {
		w, h := c.Width, c.Height
		if w == 0 {
			w = DefaultWidth
		}
		if h == 0 {
			h = DefaultHeight
		}
		opts = append(opts, WithSize(w, h))
	}
	if c.ClearColor.Set {
		opts = append(opts, WithClearColor(c.ClearColor.Color))
	}
	if c.Image != "" {
		opts = append(opts, WithImage(c.Image))
	}
	if c.Output != "" {
		opts = append(opts, WithSnapshot())
	}
	return opts
}
