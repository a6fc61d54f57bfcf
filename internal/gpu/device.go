// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// AdapterInfo describes the adapter a Device was opened on.
type AdapterInfo struct {
	// Name is the GPU name (e.g., "NVIDIA GeForce RTX 3080").
	Name string
	// Backend is the registry name of the HAL backend ("vulkan", "noop").
	Backend string
	// DeviceType is the type of GPU (discrete, integrated, etc.).
	DeviceType gputypes.DeviceType
	// Shared is true when the device came from a host DeviceProvider.
	Shared bool
}

// String returns a human-readable description of the adapter.
func (a AdapterInfo) String() string {
	if a.Shared {
		return fmt.Sprintf("%s (shared)", a.Name)
	}
	return fmt.Sprintf("%s (%v, %s)", a.Name, a.DeviceType, a.Backend)
}

// Device is a logical GPU device and its queue.
type Device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	info AdapterInfo

	// preferredFormat is the surface format of the host when the device is
	// shared, Undefined otherwise.
	preferredFormat gputypes.TextureFormat

	// external is true when the device is owned by a host (don't destroy on Close).
	external bool

	// executesCopies is false on backends that accept transfer commands
	// without running them (noop).
	executesCopies bool

	submissions []*Submission
}

// Open requests a high-performance adapter from the named backend and opens
// a device on it. An empty name tries every available hardware backend in
// priority order. Failures wrap ErrNoAdapter.
func Open(ctx context.Context, backend string) (*Device, error) {
	return globalRegistry.Open(ctx, backend)
}

// Open is like the package-level Open but uses this registry.
func (r *Registry) Open(ctx context.Context, backend string) (*Device, error) {
	entries, err := r.Resolve(backend)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := openEntry(ctx, entry)
		if err == nil {
			return d, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slogger().Debug("gpu: backend rejected", "backend", entry.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", entry.Name, err))
	}
	return nil, fmt.Errorf("%w: %w", ErrNoAdapter, errors.Join(errs...))
}

func openEntry(ctx context.Context, entry *RegistryEntry) (*Device, error) {
	instance, err := entry.Factory()
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	selected := selectAdapter(adapters)
	if selected == nil {
		instance.Destroy()
		return nil, errors.New("no GPU adapters found")
	}

	if err := ctx.Err(); err != nil {
		instance.Destroy()
		return nil, err
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	d := &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		info: AdapterInfo{
			Name:       selected.Info.Name,
			Backend:    entry.Name,
			DeviceType: selected.Info.DeviceType,
		},
		executesCopies: entry.Hardware,
	}
	slogger().Info("gpu: adapter selected", "adapter", d.info.Name, "type", d.info.DeviceType, "backend", entry.Name)
	return d, nil
}

// selectAdapter picks the adapter with the best performance class:
// discrete, then integrated, then whatever the backend offers first.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	var selected *hal.ExposedAdapter
	best := -1
	for i := range adapters {
		if r := adapterRank(adapters[i].Info.DeviceType); r > best {
			best = r
			selected = &adapters[i]
		}
	}
	return selected
}

func adapterRank(t gputypes.DeviceType) int {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return 2
	case gputypes.DeviceTypeIntegratedGPU:
		return 1
	default:
		return 0
	}
}

// halProvider is implemented by hosts (e.g. gogpu) that expose their HAL
// device and queue next to the gpucontext.DeviceProvider methods.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider wraps a device owned by a host. The provider must also
// implement HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue. The host keeps ownership: Close does not destroy the device.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil device provider", ErrNoAdapter)
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrNoAdapter)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrNoAdapter)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrNoAdapter)
	}

	slogger().Info("gpu: using shared device from provider")
	return &Device{
		device:          device,
		queue:           queue,
		info:            AdapterInfo{Name: "host device", Shared: true},
		preferredFormat: provider.SurfaceFormat(),
		external:        true,
		executesCopies:  true,
	}, nil
}

// Info returns the adapter description.
func (d *Device) Info() AdapterInfo {
	return d.info
}

// PreferredFormat returns the native surface format for this device:
// the host's surface format when shared, BGRA8Unorm otherwise.
func (d *Device) PreferredFormat() gputypes.TextureFormat {
	if d.preferredFormat != gputypes.TextureFormatUndefined {
		return d.preferredFormat
	}
	return gputypes.TextureFormatBGRA8Unorm
}

// Close waits for outstanding submissions, then releases the device and
// instance unless they belong to a host. Safe to call multiple times.
func (d *Device) Close() {
	for _, s := range d.submissions {
		s.release()
	}
	d.submissions = nil

	if d.external {
		d.device = nil
		d.queue = nil
		return
	}
	if d.device != nil {
		if err := d.device.WaitIdle(); err != nil {
			slogger().Warn("gpu: wait idle failed", "error", err)
		}
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}

func (d *Device) alive() error {
	if d == nil || d.device == nil {
		return ErrReleased
	}
	return nil
}
