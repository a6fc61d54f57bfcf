// Command firstdraw draws a first WebGPU frame: a red triangle, or an
// image-textured quad, on a gray background.
//
// Usage:
//
//	firstdraw -variant triangle -output triangle.png
//	firstdraw -variant quad -image photo.png -output quad.png
//	firstdraw -config run.yaml -v
//
// Flags override the values of the run file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/gogpu/firstdraw"
	"github.com/gogpu/firstdraw/internal/bitmap"
)

// Exit codes.
const (
	exitOK          = 0
	exitUsage       = 2
	exitUnsupported = 3
	exitDecode      = 4
	exitValidation  = 5
	exitOther       = 1
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("firstdraw", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		variant    = fs.String("variant", firstdraw.VariantTriangle, "program to run: triangle or quad")
		backend    = fs.String("backend", "", "HAL backend (vulkan, noop); empty picks hardware")
		configPath = fs.String("config", "", "YAML run file")
		imagePath  = fs.String("image", "", "image file for the quad")
		output     = fs.String("output", "", "write the frame to this file (.png, .jpg, .bmp, .tiff)")
		width      = fs.Int("width", firstdraw.DefaultWidth, "surface width")
		height     = fs.Int("height", firstdraw.DefaultHeight, "surface height")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg := &firstdraw.Config{}
	if *configPath != "" {
		loaded, err := firstdraw.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "variant":
			cfg.Variant = *variant
		case "backend":
			cfg.Backend = *backend
		case "image":
			cfg.Image = *imagePath
		case "output":
			cfg.Output = *output
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		}
	})
	if cfg.Variant == "" {
		cfg.Variant = firstdraw.VariantTriangle
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	level, _ := cfg.Level()
	logger := newLogger(stderr, level)
	firstdraw.SetLogger(logger)

	report, err := firstdraw.Run(ctx, cfg.Variant, cfg.Options()...)
	if err != nil {
		logger.Error("firstdraw: run failed", "variant", cfg.Variant, "error", err)
		return exitCode(err)
	}
	logger.Info("firstdraw: frame drawn",
		"variant", report.Variant,
		"adapter", report.Adapter,
		"draw", report.DrawCount,
		"stages", len(report.Stages),
	)

	if cfg.Output != "" {
		if err := bitmap.Save(cfg.Output, report.Image); err != nil {
			logger.Error("firstdraw: save failed", "output", cfg.Output, "error", err)
			return exitOther
		}
		logger.Info("firstdraw: frame saved", "output", cfg.Output)
	}
	return exitOK
}

// newLogger logs text to a terminal and JSON otherwise.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, firstdraw.ErrUnsupported):
		return exitUnsupported
	case errors.Is(err, firstdraw.ErrDecodeFailure):
		return exitDecode
	case errors.Is(err, firstdraw.ErrValidationFailure):
		return exitValidation
	default:
		return exitOther
	}
}
