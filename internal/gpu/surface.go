// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"fmt"
	"image"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultSurfaceHandle identifies the drawing surface both programs use.
const DefaultSurfaceHandle = "canvas-view"

// copyPitchAlignment is the WebGPU BytesPerRow alignment for texture copies.
const copyPitchAlignment = 256

// defaultWaitTimeout bounds fence waits when the context has no deadline.
const defaultWaitTimeout = 5 * time.Second

// Surface is the color target a frame is presented to. It owns one
// single-sample texture in the device's preferred format, usable as a render
// attachment and as a copy source for Snapshot.
type Surface struct {
	handle string
	device *Device

	width  uint32
	height uint32
	format gputypes.TextureFormat

	tex  hal.Texture
	view hal.TextureView
}

// ConfigureSurface binds a surface of the given size to the device, in the
// device's preferred format. Failures wrap ErrNoSurface.
func (d *Device) ConfigureSurface(handle string, width, height int) (*Surface, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if handle == "" {
		return nil, fmt.Errorf("%w: empty surface handle", ErrNoSurface)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %s has invalid size %dx%d", ErrNoSurface, handle, width, height)
	}

	format := d.PreferredFormat()
	if !renderableFormat(format) {
		return nil, fmt.Errorf("%w: %s: format %v is not a color format", ErrNoSurface, handle, format)
	}

	w, h := uint32(width), uint32(height) //nolint:gosec // dimensions checked positive above
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         handle + "_color",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s texture: %w", ErrNoSurface, handle, err)
	}

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: handle + "_color_view",
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("%w: create %s view: %w", ErrNoSurface, handle, err)
	}

	slogger().Debug("gpu: surface configured", "handle", handle, "width", w, "height", h, "format", format)
	return &Surface{
		handle: handle,
		device: d,
		width:  w,
		height: h,
		format: format,
		tex:    tex,
		view:   view,
	}, nil
}

// renderableFormat reports whether f can back a color attachment.
func renderableFormat(f gputypes.TextureFormat) bool {
	return f != gputypes.TextureFormatUndefined && !f.IsDepthStencil()
}

// readableFormat reports whether Snapshot can convert f to RGBA8. sRGB
// variants read back their stored, encoded bytes.
func readableFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		return true
	}
	return false
}

func bgraFormat(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatBGRA8Unorm || f == gputypes.TextureFormatBGRA8UnormSrgb
}

// Handle returns the fixed identifier of the surface.
func (s *Surface) Handle() string { return s.handle }

// Format returns the pixel format the surface was configured with.
func (s *Surface) Format() gputypes.TextureFormat { return s.format }

// Size returns the surface dimensions in pixels.
func (s *Surface) Size() (width, height uint32) { return s.width, s.height }

// CurrentView returns the view of the current frame target.
func (s *Surface) CurrentView() hal.TextureView { return s.view }

// Snapshot copies the surface into a CPU image. It is the only place the
// host waits on the GPU: the copy is submitted after any earlier render
// work on the same queue and waited for. Only 8-bit RGBA and BGRA
// surfaces can be read back; other formats wrap ErrValidation.
func (s *Surface) Snapshot(ctx context.Context) (*image.RGBA, error) {
	if s.tex == nil {
		return nil, ErrReleased
	}
	if !readableFormat(s.format) {
		return nil, fmt.Errorf("%w: %s: cannot read back format %v", ErrValidation, s.handle, s.format)
	}
	d := s.device
	w, h := s.width, s.height

	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: s.handle + "_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(stagingBuf)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: s.handle + "_snapshot_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(s.handle + "_snapshot"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	// After the render pass the texture is a render attachment; copies need
	// it as a copy source. No-op on Metal, GLES, software and noop backends.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: s.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(s.tex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: s.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: s.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	if err := d.submitAndWait(ctx, cmdBuf); err != nil {
		return nil, err
	}

	readback, err := d.readMapped(stagingBuf, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := 0; row < int(h); row++ {
		src := readback[row*int(alignedBytesPerRow) : row*int(alignedBytesPerRow)+int(bytesPerRow)]
		dst := img.Pix[row*img.Stride : row*img.Stride+int(bytesPerRow)]
		if bgraFormat(s.format) {
			convertBGRAToRGBA(src, dst)
		} else {
			copy(dst, src)
		}
	}
	return img, nil
}

// Destroy releases the surface texture. Safe to call multiple times.
func (s *Surface) Destroy() {
	if s.device == nil || s.device.device == nil {
		return
	}
	if s.view != nil {
		s.device.device.DestroyTextureView(s.view)
		s.view = nil
	}
	if s.tex != nil {
		s.device.device.DestroyTexture(s.tex)
		s.tex = nil
	}
}

// convertBGRAToRGBA swaps the red and blue channels of one pixel row.
func convertBGRAToRGBA(src, dst []byte) {
	for i := 0; i+3 < len(src); i += 4 {
		dst[i+0] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i+0]
		dst[i+3] = src[i+3]
	}
}

// submitAndWait submits one command buffer and blocks until the queue
// reports it complete, the context is done, or the default timeout expires.
func (d *Device) submitAndWait(ctx context.Context, cmdBuf hal.CommandBuffer) error {
	index, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return d.waitSubmission(ctx, index)
}

// pollInterval is how often waitSubmission checks the queue.
const pollInterval = time.Millisecond

func (d *Device) waitSubmission(ctx context.Context, index uint64) error {
	timeout := defaultWaitTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for d.queue.PollCompleted() < index {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("wait for GPU: submission %d not complete after %v", index, timeout)
		case <-ticker.C:
		}
	}
	return nil
}

// readMapped copies size bytes out of a map-readable buffer.
func (d *Device) readMapped(buf hal.Buffer, size uint64) ([]byte, error) {
	mapping, err := d.device.MapBuffer(buf, 0, size)
	if err != nil {
		return nil, fmt.Errorf("map buffer: %w", err)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := d.device.UnmapBuffer(buf); err != nil {
		slogger().Warn("gpu: unmap failed", "error", err)
	}
	return out, nil
}
