// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Texture is a sampled RGBA8Unorm 2D texture and its default view.
type Texture struct {
	device *Device
	tex    hal.Texture
	view   hal.TextureView

	label  string
	width  uint32
	height uint32
}

// CreateTextureFromImage creates an RGBA8Unorm texture exactly the size of
// img and copies the pixels into it.
func (d *Device) CreateTextureFromImage(label string, img *image.RGBA) (*Texture, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if img == nil || img.Rect.Empty() {
		return nil, fmt.Errorf("%w: %s: empty image", ErrValidation, label)
	}

	w, h := uint32(img.Rect.Dx()), uint32(img.Rect.Dy()) //nolint:gosec // image bounds are non-negative
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrValidation, label, err)
	}

	pixels := tightPixels(img)
	err = d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0, Aspect: gputypes.TextureAspectAll},
		pixels,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("%w: upload %s: %w", ErrValidation, label, err)
	}

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("%w: create %s view: %w", ErrValidation, label, err)
	}

	slogger().Debug("gpu: texture uploaded", "label", label, "width", w, "height", h, "bytes", len(pixels))
	return &Texture{device: d, tex: tex, view: view, label: label, width: w, height: h}, nil
}

// tightPixels returns the pixels of img with no row padding.
func tightPixels(img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	rowBytes := w * 4
	if img.Stride == rowBytes && img.Rect.Min == (image.Point{}) && len(img.Pix) == rowBytes*h {
		return img.Pix
	}
	out := make([]byte, rowBytes*h)
	for y := 0; y < h; y++ {
		start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(out[y*rowBytes:(y+1)*rowBytes], img.Pix[start:start+rowBytes])
	}
	return out
}

// Size returns the texture dimensions in pixels.
func (t *Texture) Size() (width, height uint32) { return t.width, t.height }

// Release destroys the view and texture. Safe to call multiple times.
func (t *Texture) Release() {
	if t.device.device == nil {
		return
	}
	if t.view != nil {
		t.device.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.device.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// Sampler is a texture sampler.
type Sampler struct {
	device *Device
	raw    hal.Sampler
	label  string
}

// CreateLinearSampler creates a sampler with linear magnification and
// minification and edge clamping.
func (d *Device) CreateLinearSampler(label string) (*Sampler, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	raw, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrValidation, label, err)
	}
	return &Sampler{device: d, raw: raw, label: label}, nil
}

// Release destroys the sampler. Safe to call multiple times.
func (s *Sampler) Release() {
	if s.raw == nil || s.device.device == nil {
		return
	}
	s.device.device.DestroySampler(s.raw)
	s.raw = nil
}

// BindingEntry binds one resource to a slot. Exactly one of Sampler and
// Texture must be set.
type BindingEntry struct {
	Binding uint32
	Sampler *Sampler
	Texture *Texture
}

func (e BindingEntry) kind() (BindingKind, bool) {
	switch {
	case e.Sampler != nil && e.Texture == nil:
		return BindingSampler, true
	case e.Texture != nil && e.Sampler == nil:
		return BindingTexture, true
	default:
		return 0, false
	}
}

// BindingSet is a group of resources matching a BindingSetLayout.
type BindingSet struct {
	device *Device
	raw    hal.BindGroup
	layout *BindingSetLayout
	label  string
}

// CreateBindingSet binds entries to layout. The entries must cover every
// slot of the layout exactly once with a resource of the declared kind.
func (d *Device) CreateBindingSet(label string, layout *BindingSetLayout, entries ...BindingEntry) (*BindingSet, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if layout == nil || layout.raw == nil {
		return nil, fmt.Errorf("%w: %s: nil or released layout", ErrValidation, label)
	}
	if len(entries) != len(layout.slots) {
		return nil, fmt.Errorf("%w: %s: %d entries for a layout of %d slots",
			ErrValidation, label, len(entries), len(layout.slots))
	}

	seen := make(map[uint32]bool, len(entries))
	halEntries := make([]gputypes.BindGroupEntry, 0, len(entries))
	for _, e := range entries {
		if seen[e.Binding] {
			return nil, fmt.Errorf("%w: %s: slot %d bound twice", ErrValidation, label, e.Binding)
		}
		seen[e.Binding] = true

		slot, ok := layout.slot(e.Binding)
		if !ok {
			return nil, fmt.Errorf("%w: %s: layout %s has no slot %d", ErrValidation, label, layout.label, e.Binding)
		}
		kind, ok := e.kind()
		if !ok {
			return nil, fmt.Errorf("%w: %s: slot %d needs exactly one resource", ErrValidation, label, e.Binding)
		}
		if kind != slot.Kind {
			return nil, fmt.Errorf("%w: %s: slot %d expects a %v, got a %v", ErrValidation, label, e.Binding, slot.Kind, kind)
		}

		var res gputypes.BindingResource
		switch kind {
		case BindingSampler:
			if e.Sampler.raw == nil {
				return nil, fmt.Errorf("%w: %s: slot %d: %w", ErrValidation, label, e.Binding, ErrReleased)
			}
			res = gputypes.SamplerBinding{Sampler: e.Sampler.raw.NativeHandle()}
		case BindingTexture:
			if e.Texture.view == nil {
				return nil, fmt.Errorf("%w: %s: slot %d: %w", ErrValidation, label, e.Binding, ErrReleased)
			}
			res = gputypes.TextureViewBinding{TextureView: e.Texture.view.NativeHandle()}
		}
		halEntries = append(halEntries, gputypes.BindGroupEntry{Binding: e.Binding, Resource: res})
	}

	raw, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout.raw,
		Entries: halEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrValidation, label, err)
	}
	return &BindingSet{device: d, raw: raw, layout: layout, label: label}, nil
}

// Layout returns the layout the set was created against.
func (b *BindingSet) Layout() *BindingSetLayout { return b.layout }

// Release destroys the binding set. Safe to call multiple times.
func (b *BindingSet) Release() {
	if b.raw == nil || b.device.device == nil {
		return
	}
	b.device.device.DestroyBindGroup(b.raw)
	b.raw = nil
}
