// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens a Device on the noop backend.
func createNoopDevice(t *testing.T) (*Device, func()) {
	t.Helper()
	d, err := Open(context.Background(), "noop")
	if err != nil {
		t.Fatalf("Open(noop) failed: %v", err)
	}
	return d, d.Close
}

func TestOpenNoopByName(t *testing.T) {
	d, cleanup := createNoopDevice(t)
	defer cleanup()

	info := d.Info()
	if info.Backend != "noop" {
		t.Errorf("Backend = %q, want noop", info.Backend)
	}
	if info.Name != "Noop Adapter" {
		t.Errorf("Name = %q, want Noop Adapter", info.Name)
	}
	if info.Shared {
		t.Error("opened device must not be marked shared")
	}
	if got := d.PreferredFormat(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("PreferredFormat = %v, want BGRA8Unorm", got)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), "metal-on-linux")
	if !errors.Is(err, ErrNoAdapter) {
		t.Fatalf("expected ErrNoAdapter, got %v", err)
	}
}

func TestOpenCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, "noop")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSelectAdapter(t *testing.T) {
	adapter := func(name string, typ gputypes.DeviceType) hal.ExposedAdapter {
		return hal.ExposedAdapter{Info: gputypes.AdapterInfo{Name: name, DeviceType: typ}}
	}

	tests := []struct {
		name     string
		adapters []hal.ExposedAdapter
		want     string
	}{
		{
			name: "discrete wins",
			adapters: []hal.ExposedAdapter{
				adapter("igpu", gputypes.DeviceTypeIntegratedGPU),
				adapter("dgpu", gputypes.DeviceTypeDiscreteGPU),
				adapter("cpu", gputypes.DeviceTypeCPU),
			},
			want: "dgpu",
		},
		{
			name: "integrated over other",
			adapters: []hal.ExposedAdapter{
				adapter("other", gputypes.DeviceTypeOther),
				adapter("igpu", gputypes.DeviceTypeIntegratedGPU),
			},
			want: "igpu",
		},
		{
			name:     "first of equal rank",
			adapters: []hal.ExposedAdapter{adapter("a", gputypes.DeviceTypeOther), adapter("b", gputypes.DeviceTypeOther)},
			want:     "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectAdapter(tt.adapters)
			if got == nil {
				t.Fatal("selectAdapter returned nil")
			}
			if got.Info.Name != tt.want {
				t.Errorf("selected %q, want %q", got.Info.Name, tt.want)
			}
		})
	}

	if selectAdapter(nil) != nil {
		t.Error("selectAdapter(nil) should return nil")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	d, _ := createNoopDevice(t)
	d.Close()
	d.Close()

	if _, err := d.UploadFloat32("after_close", []float32{1}); !errors.Is(err, ErrReleased) {
		t.Errorf("expected ErrReleased after Close, got %v", err)
	}
}

// fakeProvider is a gpucontext.DeviceProvider that also exposes HAL types.
// Only SurfaceFormat and the HAL accessors are ever called.
type fakeProvider struct {
	gpucontext.DeviceProvider
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

func (p *fakeProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *fakeProvider) HalDevice() any                        { return p.device }
func (p *fakeProvider) HalQueue() any                         { return p.queue }

func TestFromProvider(t *testing.T) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	defer instance.Destroy()
	openDev, err := instance.EnumerateAdapters(nil)[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer openDev.Device.Destroy()

	d, err := FromProvider(&fakeProvider{
		device: openDev.Device,
		queue:  openDev.Queue,
		format: gputypes.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		t.Fatalf("FromProvider failed: %v", err)
	}
	if !d.Info().Shared {
		t.Error("provider device should be marked shared")
	}
	if got := d.PreferredFormat(); got != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("PreferredFormat = %v, want provider format RGBA8Unorm", got)
	}

	d.Close()
	if d.device != nil || d.queue != nil {
		t.Error("Close should drop references to the host device")
	}
}

// sharedNoopDevice wraps a noop HAL device in a host provider that prefers
// format.
func sharedNoopDevice(t *testing.T, format gputypes.TextureFormat) *Device {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	t.Cleanup(instance.Destroy)
	openDev, err := instance.EnumerateAdapters(nil)[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(openDev.Device.Destroy)

	d, err := FromProvider(&fakeProvider{device: openDev.Device, queue: openDev.Queue, format: format})
	if err != nil {
		t.Fatalf("FromProvider failed: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestFromProviderSurfaceFormats(t *testing.T) {
	tests := []struct {
		name         string
		format       gputypes.TextureFormat
		wantSnapshot bool
	}{
		{"bgra8 srgb", gputypes.TextureFormatBGRA8UnormSrgb, true},
		{"rgba8 srgb", gputypes.TextureFormatRGBA8UnormSrgb, true},
		{"rgba16 float", gputypes.TextureFormatRGBA16Float, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sharedNoopDevice(t, tt.format)

			s, err := d.ConfigureSurface(DefaultSurfaceHandle, 8, 8)
			if err != nil {
				t.Fatalf("ConfigureSurface failed: %v", err)
			}
			defer s.Destroy()
			if s.Format() != tt.format {
				t.Errorf("Format() = %v, want host format %v", s.Format(), tt.format)
			}

			img, err := s.Snapshot(context.Background())
			if tt.wantSnapshot {
				if err != nil || img.Bounds().Dx() != 8 {
					t.Errorf("Snapshot = %v, %v", img, err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Snapshot of %v: expected ErrValidation, got %v", tt.format, err)
			}
		})
	}
}

func TestFromProviderDepthFormatRejected(t *testing.T) {
	d := sharedNoopDevice(t, gputypes.TextureFormatDepth24Plus)
	if _, err := d.ConfigureSurface(DefaultSurfaceHandle, 8, 8); !errors.Is(err, ErrNoSurface) {
		t.Errorf("depth surface: expected ErrNoSurface, got %v", err)
	}
}

func TestFromProviderRejects(t *testing.T) {
	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
	}{
		{"nil provider", nil},
		{"no HAL accessors", struct{ gpucontext.DeviceProvider }{}},
		{"HAL accessors return nil", &fakeProvider{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromProvider(tt.provider); !errors.Is(err, ErrNoAdapter) {
				t.Errorf("expected ErrNoAdapter, got %v", err)
			}
		})
	}
}

func TestAdapterInfoString(t *testing.T) {
	shared := AdapterInfo{Name: "host device", Shared: true}
	if got := shared.String(); got != "host device (shared)" {
		t.Errorf("String() = %q", got)
	}
	own := AdapterInfo{Name: "Noop Adapter", Backend: "noop", DeviceType: gputypes.DeviceTypeOther}
	if got := own.String(); got == "" {
		t.Error("String() should not be empty")
	}
}
