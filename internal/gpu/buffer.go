// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BufferUsage selects what a sealed buffer is bound as.
type BufferUsage int

const (
	// UsageVertex marks per-vertex attribute data.
	UsageVertex BufferUsage = iota
	// UsageIndex marks Uint16 index data.
	UsageIndex
)

// String returns the usage name.
func (u BufferUsage) String() string {
	switch u {
	case UsageVertex:
		return "vertex"
	case UsageIndex:
		return "index"
	default:
		return fmt.Sprintf("BufferUsage(%d)", int(u))
	}
}

func (u BufferUsage) halUsage() gputypes.BufferUsage {
	base := gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	if u == UsageIndex {
		return base | gputypes.BufferUsageIndex
	}
	return base | gputypes.BufferUsageVertex
}

// Element byte widths of the supported CPU-side arrays.
const (
	Float32Width = 4
	Uint16Width  = 2
)

// copyAlignment is the WebGPU size alignment for buffer writes and copies.
const copyAlignment = 4

// Buffer is a GPU buffer filled once from a CPU array and sealed. The API
// offers no way to write it again.
type Buffer struct {
	device *Device
	raw    hal.Buffer

	label        string
	usage        BufferUsage
	elementCount int
	elementWidth int
	size         uint64

	// indices keeps a CPU copy of index data for range checks at draw time.
	indices []uint16
}

// Upload allocates a buffer of exactly len(payload) bytes, writes payload
// into it and seals it. The payload must hold elementCount elements of
// elementWidth bytes each; any other size is rejected with ErrValidation.
func (d *Device) Upload(label string, payload []byte, elementCount, elementWidth int, usage BufferUsage) (*Buffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if elementCount <= 0 || elementWidth <= 0 {
		return nil, fmt.Errorf("%w: %s: empty buffer (%d elements of %d bytes)", ErrValidation, label, elementCount, elementWidth)
	}
	want := uint64(elementCount) * uint64(elementWidth) //nolint:gosec // both checked positive
	if uint64(len(payload)) != want {
		return nil, fmt.Errorf("%w: %s: byte size %d != %d elements x %d bytes",
			ErrValidation, label, len(payload), elementCount, elementWidth)
	}
	if want%copyAlignment != 0 {
		return nil, fmt.Errorf("%w: %s: byte size %d is not a multiple of %d",
			ErrValidation, label, want, copyAlignment)
	}

	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  want,
		Usage: usage.halUsage(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrValidation, label, err)
	}
	if err := d.queue.WriteBuffer(raw, 0, payload); err != nil {
		d.device.DestroyBuffer(raw)
		return nil, fmt.Errorf("%w: write %s: %w", ErrValidation, label, err)
	}

	slogger().Debug("gpu: buffer uploaded", "label", label, "usage", usage, "elements", elementCount, "bytes", want)
	return &Buffer{
		device:       d,
		raw:          raw,
		label:        label,
		usage:        usage,
		elementCount: elementCount,
		elementWidth: elementWidth,
		size:         want,
	}, nil
}

// UploadFloat32 uploads a float32 array as vertex data.
func (d *Device) UploadFloat32(label string, data []float32) (*Buffer, error) {
	return d.Upload(label, EncodeFloat32(data), len(data), Float32Width, UsageVertex)
}

// UploadUint16 uploads a uint16 array as index data.
func (d *Device) UploadUint16(label string, data []uint16) (*Buffer, error) {
	b, err := d.Upload(label, EncodeUint16(data), len(data), Uint16Width, UsageIndex)
	if err != nil {
		return nil, err
	}
	b.indices = append([]uint16(nil), data...)
	return b, nil
}

// EncodeFloat32 returns the little-endian bytes of data.
func EncodeFloat32(data []float32) []byte {
	out := make([]byte, len(data)*Float32Width)
	for i, v := range data {
		binary.LittleEndian.PutUint32(out[i*Float32Width:], math.Float32bits(v))
	}
	return out
}

// EncodeUint16 returns the little-endian bytes of data.
func EncodeUint16(data []uint16) []byte {
	out := make([]byte, len(data)*Uint16Width)
	for i, v := range data {
		binary.LittleEndian.PutUint16(out[i*Uint16Width:], v)
	}
	return out
}

// DecodeFloat32 is the inverse of EncodeFloat32.
func DecodeFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/Float32Width)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*Float32Width:]))
	}
	return out
}

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// Usage returns what the buffer is bound as.
func (b *Buffer) Usage() BufferUsage { return b.usage }

// Len returns the number of elements uploaded.
func (b *Buffer) Len() int { return b.elementCount }

// ElementWidth returns the byte width of one element.
func (b *Buffer) ElementWidth() int { return b.elementWidth }

// Size returns the buffer size in bytes. It always equals Len() * ElementWidth().
func (b *Buffer) Size() uint64 { return b.size }

// ReadBack copies the buffer through a map-readable staging buffer and
// returns its bytes. Backends that execute no copies (noop) return
// ErrReadBackUnsupported.
func (b *Buffer) ReadBack(ctx context.Context) ([]byte, error) {
	if b.raw == nil {
		return nil, ErrReleased
	}
	d := b.device
	if !d.executesCopies {
		return nil, fmt.Errorf("read back %s on %s: %w", b.label, d.info.Backend, ErrReadBackUnsupported)
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label + "_readback",
		Size:  b.size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create readback buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: b.label + "_readback_encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(b.label + "_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(b.raw, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: b.size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	if err := d.submitAndWait(ctx, cmdBuf); err != nil {
		return nil, err
	}

	out, err := d.readMapped(staging, b.size)
	if err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return out, nil
}

// Release destroys the GPU buffer. Safe to call multiple times.
func (b *Buffer) Release() {
	if b.raw == nil || b.device.device == nil {
		return
	}
	b.device.device.DestroyBuffer(b.raw)
	b.raw = nil
}
