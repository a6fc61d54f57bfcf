// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestConfigureSurface(t *testing.T) {
	d, cleanup := createNoopDevice(t)
	defer cleanup()

	s, err := d.ConfigureSurface(DefaultSurfaceHandle, 320, 240)
	if err != nil {
		t.Fatalf("ConfigureSurface failed: %v", err)
	}
	defer s.Destroy()

	if s.Handle() != "canvas-view" {
		t.Errorf("Handle() = %q", s.Handle())
	}
	if s.Format() != d.PreferredFormat() {
		t.Errorf("Format() = %v, want preferred %v", s.Format(), d.PreferredFormat())
	}
	if w, h := s.Size(); w != 320 || h != 240 {
		t.Errorf("Size() = %dx%d, want 320x240", w, h)
	}
	if s.CurrentView() == nil {
		t.Error("CurrentView() is nil")
	}

	s.Destroy()
	s.Destroy()
}

func TestConfigureSurfaceRejects(t *testing.T) {
	d, cleanup := createNoopDevice(t)
	defer cleanup()

	tests := []struct {
		name          string
		handle        string
		width, height int
	}{
		{"empty handle", "", 10, 10},
		{"zero width", DefaultSurfaceHandle, 0, 10},
		{"negative height", DefaultSurfaceHandle, 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.ConfigureSurface(tt.handle, tt.width, tt.height); !errors.Is(err, ErrNoSurface) {
				t.Errorf("expected ErrNoSurface, got %v", err)
			}
		})
	}
}

func TestSnapshotSize(t *testing.T) {
	d, cleanup := createNoopDevice(t)
	defer cleanup()

	// 70 px rows are 280 bytes, which the copy pads to 512.
	s, err := d.ConfigureSurface(DefaultSurfaceHandle, 70, 5)
	if err != nil {
		t.Fatalf("ConfigureSurface failed: %v", err)
	}
	defer s.Destroy()

	img, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 70 || b.Dy() != 5 {
		t.Errorf("snapshot bounds = %v, want 70x5", b)
	}

	s.Destroy()
	if _, err := s.Snapshot(context.Background()); !errors.Is(err, ErrReleased) {
		t.Errorf("Snapshot after Destroy: expected ErrReleased, got %v", err)
	}
}

func TestConvertBGRAToRGBA(t *testing.T) {
	src := []byte{10, 20, 30, 255, 1, 2, 3, 4}
	dst := make([]byte, len(src))
	convertBGRAToRGBA(src, dst)

	want := []byte{30, 20, 10, 255, 3, 2, 1, 4}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
}

func TestReadableFormat(t *testing.T) {
	tests := []struct {
		format     gputypes.TextureFormat
		readable   bool
		renderable bool
	}{
		{gputypes.TextureFormatBGRA8Unorm, true, true},
		{gputypes.TextureFormatBGRA8UnormSrgb, true, true},
		{gputypes.TextureFormatRGBA8Unorm, true, true},
		{gputypes.TextureFormatRGBA8UnormSrgb, true, true},
		{gputypes.TextureFormatRGBA16Float, false, true},
		{gputypes.TextureFormatDepth32Float, false, false},
		{gputypes.TextureFormatUndefined, false, false},
	}
	for _, tt := range tests {
		if got := readableFormat(tt.format); got != tt.readable {
			t.Errorf("readableFormat(%v) = %v, want %v", tt.format, got, tt.readable)
		}
		if got := renderableFormat(tt.format); got != tt.renderable {
			t.Errorf("renderableFormat(%v) = %v, want %v", tt.format, got, tt.renderable)
		}
	}
}
