package bitmap

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// checker returns a 4x2 image with distinct opaque colors per pixel.
func checker() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 200), B: 10, A: 255})
		}
	}
	return img
}

func TestSaveAndLoadLossless(t *testing.T) {
	src := checker()
	for _, ext := range []string{".png", ".bmp", ".tiff"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "img"+ext)
			if err := Save(path, src); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			got, err := Load(context.Background(), path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got.Bounds() != src.Bounds() {
				t.Fatalf("bounds = %v, want %v", got.Bounds(), src.Bounds())
			}
			for y := 0; y < 2; y++ {
				for x := 0; x < 4; x++ {
					if got.RGBAAt(x, y) != src.RGBAAt(x, y) {
						t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got.RGBAAt(x, y), src.RGBAAt(x, y))
					}
				}
			}
		})
	}
}

func TestLoadJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := Save(path, checker()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	img, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 2 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestDecodePalettedGIF(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 3, 3), color.Palette{color.Black, color.White})
	pal.SetColorIndex(1, 1, 1)

	var buf bytes.Buffer
	if err := gif.Encode(&buf, pal, nil); err != nil {
		t.Fatalf("gif.Encode failed: %v", err)
	}

	img, format, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if format != "gif" {
		t.Errorf("format = %q, want gif", format)
	}
	if c := img.RGBAAt(1, 1); c.R != 255 || c.A != 255 {
		t.Errorf("center pixel = %v, want white", c)
	}
}

func TestDecodeFailures(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("definitely not a png"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.png")},
		{"corrupt data", garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.path)
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), "unable to load image") {
				t.Errorf("error %q should start with the textual reason", err)
			}
		})
	}

	if _, _, err := DecodeBytes(nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("DecodeBytes(nil): expected ErrEmptyData, got %v", err)
	}
}

func TestLoadAsyncCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The decode may win the race against the canceled context; either
	// outcome must arrive exactly once.
	ch := LoadAsync(ctx, filepath.Join(t.TempDir(), "missing.png"))
	r, ok := <-ch
	if !ok {
		t.Fatal("channel closed without a result")
	}
	if r.Err == nil {
		t.Error("expected an error")
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after one result")
	}
}

func TestToRGBA(t *testing.T) {
	src := checker()
	if ToRGBA(src) != src {
		t.Error("origin-based RGBA should be returned as is")
	}

	sub := src.SubImage(image.Rect(1, 1, 3, 2))
	got := ToRGBA(sub)
	if got.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("bounds = %v, want origin-based 2x1", got.Bounds())
	}
	if got.RGBAAt(0, 0) != src.RGBAAt(1, 1) {
		t.Errorf("pixel = %v, want %v", got.RGBAAt(0, 0), src.RGBAAt(1, 1))
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	nrgba.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	if c := ToRGBA(nrgba).RGBAAt(0, 0); c.R != 255 || c.A != 255 {
		t.Errorf("converted pixel = %v", c)
	}
}

func TestSaveUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.xyz")
	if err := Save(path, checker()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("failed Save should not leave a file behind")
	}
}
