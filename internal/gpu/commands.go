// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultClearColor is the opaque mid-gray every frame starts from.
var DefaultClearColor = gputypes.Color{R: 0.6, G: 0.6, B: 0.6, A: 1}

// DrawCall is the one draw a render pass issues. When Indexed is set,
// Count indices are read from the index buffer; otherwise Count vertices
// are drawn in order.
type DrawCall struct {
	Count   uint32
	Indexed bool
}

// String returns a short description such as "indexed(6)".
func (c DrawCall) String() string {
	if c.Indexed {
		return fmt.Sprintf("indexed(%d)", c.Count)
	}
	return fmt.Sprintf("draw(%d)", c.Count)
}

// RenderPass is everything one frame records: a clear of the surface, the
// pipeline and its inputs, and a single draw.
type RenderPass struct {
	Label string

	Surface    *Surface
	ClearColor gputypes.Color

	Pipeline      *Pipeline
	VertexBuffers []*Buffer // by slot
	IndexBuffer   *Buffer   // required when Draw.Indexed
	BindingSet    *BindingSet

	Draw DrawCall
}

// Submission is one command buffer handed to the queue. It is not waited on
// when created; the device frees it on Close once the GPU is done.
type Submission struct {
	device *Device
	cmdBuf hal.CommandBuffer
	index  uint64
	label  string
}

// Submit records pass into one command buffer and submits it once. It does
// not wait for the GPU. The pass is checked against the pipeline first and
// any mismatch is returned wrapped in ErrValidation without touching the
// queue.
func (d *Device) Submit(pass *RenderPass) (*Submission, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if err := d.checkPass(pass); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: pass.Label + "_encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(pass.Label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: pass.Label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       pass.Surface.CurrentView(),
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: pass.ClearColor,
		}},
	})
	rp.SetPipeline(pass.Pipeline.raw)
	if pass.BindingSet != nil {
		rp.SetBindGroup(0, pass.BindingSet.raw, nil)
	}
	for slot, b := range pass.VertexBuffers {
		rp.SetVertexBuffer(uint32(slot), b.raw, 0) //nolint:gosec // slot count bounded by pipeline
	}
	if pass.Draw.Indexed {
		rp.SetIndexBuffer(pass.IndexBuffer.raw, gputypes.IndexFormatUint16, 0)
		rp.DrawIndexed(pass.Draw.Count, 1, 0, 0, 0)
	} else {
		rp.Draw(pass.Draw.Count, 1, 0, 0)
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("end encoding: %w", err)
	}

	index, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		d.device.FreeCommandBuffer(cmdBuf)
		return nil, fmt.Errorf("submit: %w", err)
	}

	s := &Submission{device: d, cmdBuf: cmdBuf, index: index, label: pass.Label}
	d.submissions = append(d.submissions, s)
	slogger().Info("gpu: frame submitted", "label", pass.Label, "draw", pass.Draw, "submission", index)
	return s, nil
}

// checkPass verifies that the pass feeds its pipeline: one buffer per
// vertex slot, a binding set exactly when the pipeline declares one,
// enough vertices for the draw and in-range indices.
func (d *Device) checkPass(pass *RenderPass) error {
	if pass == nil {
		return errors.New("nil render pass")
	}
	if pass.Surface == nil || pass.Surface.view == nil {
		return errors.New("render pass has no surface")
	}
	p := pass.Pipeline
	if p == nil || p.raw == nil {
		return errors.New("render pass has no pipeline")
	}
	if p.format != pass.Surface.format {
		return fmt.Errorf("pipeline %s targets %v, surface is %v", p.label, p.format, pass.Surface.format)
	}
	if pass.Draw.Count == 0 {
		return errors.New("empty draw")
	}

	if len(pass.VertexBuffers) != len(p.buffers) {
		return fmt.Errorf("pipeline %s has %d vertex slots, pass binds %d buffers",
			p.label, len(p.buffers), len(pass.VertexBuffers))
	}

	switch {
	case len(p.bindingLayouts) == 0 && pass.BindingSet != nil:
		return fmt.Errorf("pipeline %s declares no binding sets, pass binds one", p.label)
	case len(p.bindingLayouts) > 1:
		return fmt.Errorf("pipeline %s declares %d binding sets, a pass binds at most one", p.label, len(p.bindingLayouts))
	case len(p.bindingLayouts) == 1:
		if pass.BindingSet == nil || pass.BindingSet.raw == nil {
			return fmt.Errorf("pipeline %s needs a binding set at group 0", p.label)
		}
		if pass.BindingSet.layout != p.bindingLayouts[0] {
			return fmt.Errorf("binding set %s was not created for pipeline %s", pass.BindingSet.label, p.label)
		}
	}

	capacity := ^uint64(0)
	for slot, b := range pass.VertexBuffers {
		if b == nil || b.raw == nil {
			return fmt.Errorf("vertex slot %d: no buffer", slot)
		}
		if b.usage != UsageVertex {
			return fmt.Errorf("vertex slot %d: %s is a %v buffer", slot, b.label, b.usage)
		}
		if n := vertexCapacity(b.size, p.buffers[slot]); n < capacity {
			capacity = n
		}
	}

	if !pass.Draw.Indexed {
		if pass.IndexBuffer != nil {
			return errors.New("index buffer bound to a non-indexed draw")
		}
		if uint64(pass.Draw.Count) > capacity {
			return fmt.Errorf("draw of %d vertices exceeds buffer capacity %d", pass.Draw.Count, capacity)
		}
		return nil
	}

	ib := pass.IndexBuffer
	if ib == nil || ib.raw == nil {
		return errors.New("indexed draw without index buffer")
	}
	if ib.usage != UsageIndex {
		return fmt.Errorf("%s is a %v buffer, not an index buffer", ib.label, ib.usage)
	}
	if int(pass.Draw.Count) > len(ib.indices) {
		return fmt.Errorf("draw of %d indices exceeds index buffer length %d", pass.Draw.Count, len(ib.indices))
	}
	for i, idx := range ib.indices[:pass.Draw.Count] {
		if uint64(idx) >= capacity {
			return fmt.Errorf("index %d at position %d is out of range for %d vertices", idx, i, capacity)
		}
	}
	return nil
}

// vertexCapacity returns how many vertices a buffer of size bytes holds
// under layout.
func vertexCapacity(size uint64, layout VertexBufferLayout) uint64 {
	extent := layout.extent()
	if layout.Stride == 0 || size < extent {
		return 0
	}
	return (size-extent)/layout.Stride + 1
}

// Index returns the queue submission index.
func (s *Submission) Index() uint64 { return s.index }

// Done reports whether the GPU has finished the submission.
func (s *Submission) Done() bool {
	if s.device.queue == nil {
		return true
	}
	return s.device.queue.PollCompleted() >= s.index
}

// Wait blocks until the GPU has finished the submission or ctx is done.
func (s *Submission) Wait(ctx context.Context) error {
	if s.device.queue == nil {
		return ErrReleased
	}
	return s.device.waitSubmission(ctx, s.index)
}

// release waits a bounded time for the GPU, then frees the command buffer.
func (s *Submission) release() {
	if s.cmdBuf == nil || s.device.device == nil {
		return
	}
	if err := s.device.waitSubmission(context.Background(), s.index); err != nil {
		slogger().Warn("gpu: submission still pending at release", "label", s.label, "error", err)
	}
	s.device.device.FreeCommandBuffer(s.cmdBuf)
	s.cmdBuf = nil
}
