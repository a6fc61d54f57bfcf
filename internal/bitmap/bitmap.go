// Package bitmap decodes image files into RGBA pixel buffers ready for
// upload as textures, and writes rendered frames back to disk.
package bitmap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Errors.
var (
	// ErrDecode is wrapped by every load or decode failure.
	ErrDecode = errors.New("unable to load image")

	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("bitmap: empty data")

	// ErrUnsupportedFormat is returned by Save for unknown file extensions.
	ErrUnsupportedFormat = errors.New("bitmap: unsupported format")
)

// Result is the outcome of an asynchronous load.
type Result struct {
	Image  *image.RGBA
	Format string
	Err    error
}

// LoadAsync starts decoding the file at path on its own goroutine. The
// returned channel receives exactly one Result and is then closed. If ctx
// is done first, the Result carries ctx.Err().
func LoadAsync(ctx context.Context, path string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)

		done := make(chan Result, 1)
		go func() {
			img, format, err := LoadFile(path)
			done <- Result{Image: img, Format: format, Err: err}
		}()

		select {
		case r := <-done:
			out <- r
		case <-ctx.Done():
			out <- Result{Err: ctx.Err()}
		}
	}()
	return out
}

// Load decodes the file at path, returning early if ctx is done.
func Load(ctx context.Context, path string) (*image.RGBA, error) {
	r := <-LoadAsync(ctx, path)
	return r.Image, r.Err
}

// LoadFile reads and decodes the file at path, auto-detecting the format.
// Supported formats: PNG, JPEG, GIF, BMP, TIFF, WebP.
func LoadFile(path string) (*image.RGBA, string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, ErrEmptyData)
	}
	return Decode(bytes.NewReader(data))
}

// Decode decodes an image from r and converts it to RGBA.
func Decode(r io.Reader) (*image.RGBA, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return ToRGBA(img), format, nil
}

// ToRGBA returns img as an *image.RGBA whose bounds start at the origin.
// Images that already are in that shape are returned as is.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	return dst
}

// Save writes img to path. The format follows the extension: .png, .jpg,
// .jpeg, .bmp, .tif or .tiff.
func Save(path string, img image.Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("bitmap: create file: %w", err)
	}
	if err := Encode(f, strings.ToLower(filepath.Ext(path)), img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// Encode writes img to w in the format named by ext (".png", ".bmp", ...).
func Encode(w io.Writer, ext string, img image.Image) error {
	var err error
	switch ext {
	case ".png":
		err = png.Encode(w, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		err = bmp.Encode(w, img)
	case ".tif", ".tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("bitmap: encode %s: %w", ext, err)
	}
	return nil
}
