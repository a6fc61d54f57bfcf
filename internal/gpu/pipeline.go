// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BindingKind is the resource type a binding slot accepts.
type BindingKind int

const (
	// BindingSampler is a filtering sampler slot.
	BindingSampler BindingKind = iota + 1
	// BindingTexture is a float 2D sampled texture slot.
	BindingTexture
)

// String returns the kind name.
func (k BindingKind) String() string {
	switch k {
	case BindingSampler:
		return "sampler"
	case BindingTexture:
		return "texture"
	default:
		return fmt.Sprintf("BindingKind(%d)", int(k))
	}
}

// BindingSlot declares one fragment-visible slot of a binding-set layout.
type BindingSlot struct {
	Binding uint32
	Kind    BindingKind
}

// BindingSetLayout is the declared shape of a binding set.
type BindingSetLayout struct {
	device *Device
	raw    hal.BindGroupLayout

	label string
	slots []BindingSlot
}

// CreateBindingSetLayout declares a binding-set layout. Slot numbers must be
// unique.
func (d *Device) CreateBindingSetLayout(label string, slots ...BindingSlot) (*BindingSetLayout, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: %s: layout has no slots", ErrValidation, label)
	}

	seen := make(map[uint32]bool, len(slots))
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(slots))
	for _, s := range slots {
		if seen[s.Binding] {
			return nil, fmt.Errorf("%w: %s: slot %d declared twice", ErrValidation, label, s.Binding)
		}
		seen[s.Binding] = true

		entry := gputypes.BindGroupLayoutEntry{
			Binding:    s.Binding,
			Visibility: gputypes.ShaderStageFragment,
		}
		switch s.Kind {
		case BindingSampler:
			entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
		case BindingTexture:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		default:
			return nil, fmt.Errorf("%w: %s: slot %d has unknown kind %v", ErrValidation, label, s.Binding, s.Kind)
		}
		entries = append(entries, entry)
	}

	raw, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrValidation, label, err)
	}
	return &BindingSetLayout{
		device: d,
		raw:    raw,
		label:  label,
		slots:  append([]BindingSlot(nil), slots...),
	}, nil
}

// Slots returns the declared slots in declaration order.
func (l *BindingSetLayout) Slots() []BindingSlot { return l.slots }

func (l *BindingSetLayout) slot(binding uint32) (BindingSlot, bool) {
	for _, s := range l.slots {
		if s.Binding == binding {
			return s, true
		}
	}
	return BindingSlot{}, false
}

// Release destroys the layout. Safe to call multiple times.
func (l *BindingSetLayout) Release() {
	if l.raw == nil || l.device.device == nil {
		return
	}
	l.device.device.DestroyBindGroupLayout(l.raw)
	l.raw = nil
}

// VertexAttribute maps a byte range of each vertex to a shader location.
type VertexAttribute struct {
	Format   gputypes.VertexFormat
	Offset   uint64
	Location uint32
}

// VertexBufferLayout describes one vertex buffer slot. The slot index is the
// position of the layout in PipelineDesc.Buffers. Buffers always step per
// vertex.
type VertexBufferLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

// extent returns the bytes one vertex reads from the buffer.
func (l VertexBufferLayout) extent() uint64 {
	var end uint64
	for _, a := range l.Attributes {
		if e := a.Offset + a.Format.Size(); e > end {
			end = e
		}
	}
	return end
}

// PipelineDesc describes a render pipeline.
type PipelineDesc struct {
	Label string

	Shader         *ShaderProgram
	VertexEntry    string
	FragmentEntry  string
	Buffers        []VertexBufferLayout
	TargetFormat   gputypes.TextureFormat
	BindingLayouts []*BindingSetLayout // nil derives an empty layout
}

// Pipeline is an immutable render pipeline: shader, vertex input layout,
// primitive topology and target format.
type Pipeline struct {
	device *Device
	raw    hal.RenderPipeline
	layout hal.PipelineLayout

	label          string
	buffers        []VertexBufferLayout
	bindingLayouts []*BindingSetLayout
	format         gputypes.TextureFormat
}

// CreatePipeline validates desc against the shader's reflected inputs and
// creates a triangle-list pipeline. Validation failures wrap ErrValidation
// and happen before anything is handed to the device.
func (d *Device) CreatePipeline(desc *PipelineDesc) (*Pipeline, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if desc == nil || desc.Shader == nil || desc.Shader.module == nil {
		return nil, fmt.Errorf("%w: pipeline needs a compiled shader", ErrValidation)
	}
	vs, ok := desc.Shader.EntryPoint(StageVertex, desc.VertexEntry)
	if !ok {
		return nil, fmt.Errorf("%w: %s: no vertex entry point %q", ErrValidation, desc.Label, desc.VertexEntry)
	}
	if _, ok := desc.Shader.EntryPoint(StageFragment, desc.FragmentEntry); !ok {
		return nil, fmt.Errorf("%w: %s: no fragment entry point %q", ErrValidation, desc.Label, desc.FragmentEntry)
	}
	if desc.TargetFormat == gputypes.TextureFormatUndefined {
		return nil, fmt.Errorf("%w: %s: undefined target format", ErrValidation, desc.Label)
	}
	if err := ValidateVertexLayout(vs, desc.Buffers); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrValidation, desc.Label, err)
	}

	groupLayouts := make([]hal.BindGroupLayout, 0, len(desc.BindingLayouts))
	for i, l := range desc.BindingLayouts {
		if l == nil || l.raw == nil {
			return nil, fmt.Errorf("%w: %s: binding layout %d is nil or released", ErrValidation, desc.Label, i)
		}
		groupLayouts = append(groupLayouts, l.raw)
	}
	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + "_layout",
		BindGroupLayouts: groupLayouts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s layout: %w", ErrValidation, desc.Label, err)
	}

	buffers := make([]gputypes.VertexBufferLayout, len(desc.Buffers))
	for i, b := range desc.Buffers {
		attrs := make([]gputypes.VertexAttribute, len(b.Attributes))
		for j, a := range b.Attributes {
			attrs[j] = gputypes.VertexAttribute{Format: a.Format, Offset: a.Offset, ShaderLocation: a.Location}
		}
		buffers[i] = gputypes.VertexBufferLayout{
			ArrayStride: b.Stride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  attrs,
		}
	}

	raw, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     desc.Shader.module,
			EntryPoint: desc.VertexEntry,
			Buffers:    buffers,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     desc.Shader.module,
			EntryPoint: desc.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    desc.TargetFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		d.device.DestroyPipelineLayout(layout)
		return nil, fmt.Errorf("%w: create %s: %w", ErrValidation, desc.Label, err)
	}

	slogger().Debug("gpu: pipeline created",
		"label", desc.Label, "buffers", len(desc.Buffers),
		"binding_sets", len(desc.BindingLayouts), "format", desc.TargetFormat)

	return &Pipeline{
		device:         d,
		raw:            raw,
		layout:         layout,
		label:          desc.Label,
		buffers:        append([]VertexBufferLayout(nil), desc.Buffers...),
		bindingLayouts: append([]*BindingSetLayout(nil), desc.BindingLayouts...),
		format:         desc.TargetFormat,
	}, nil
}

// Label returns the debug label.
func (p *Pipeline) Label() string { return p.label }

// Format returns the color target format.
func (p *Pipeline) Format() gputypes.TextureFormat { return p.format }

// VertexBuffers returns the vertex buffer layouts by slot.
func (p *Pipeline) VertexBuffers() []VertexBufferLayout { return p.buffers }

// BindingLayouts returns the binding-set layouts by group index.
func (p *Pipeline) BindingLayouts() []*BindingSetLayout { return p.bindingLayouts }

// Release destroys the pipeline and its layout. Safe to call multiple times.
func (p *Pipeline) Release() {
	if p.device.device == nil {
		return
	}
	if p.raw != nil {
		p.device.device.DestroyRenderPipeline(p.raw)
		p.raw = nil
	}
	if p.layout != nil {
		p.device.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
}

// vertexFormatTypes maps the supported vertex formats to the WGSL type a
// shader input must declare to consume them.
var vertexFormatTypes = map[gputypes.VertexFormat]string{
	gputypes.VertexFormatFloat32:   "f32",
	gputypes.VertexFormatFloat32x2: "vec2<f32>",
	gputypes.VertexFormatFloat32x3: "vec3<f32>",
	gputypes.VertexFormatFloat32x4: "vec4<f32>",
	gputypes.VertexFormatUint32:    "u32",
	gputypes.VertexFormatUint32x2:  "vec2<u32>",
	gputypes.VertexFormatUint32x3:  "vec3<u32>",
	gputypes.VertexFormatUint32x4:  "vec4<u32>",
	gputypes.VertexFormatSint32:    "i32",
	gputypes.VertexFormatSint32x2:  "vec2<i32>",
	gputypes.VertexFormatSint32x3:  "vec3<i32>",
	gputypes.VertexFormatSint32x4:  "vec4<i32>",
}

// ValidateVertexLayout checks that buffers feed the inputs of a vertex entry
// point: each input location is supplied by exactly one attribute of the
// matching type, each attribute fits in its stride, and every stride is a
// non-zero multiple of 4. All problems are reported together.
func ValidateVertexLayout(ep EntryPoint, buffers []VertexBufferLayout) error {
	var errs []error
	supplied := make(map[uint32]VertexAttribute)

	for slot, b := range buffers {
		if b.Stride == 0 || b.Stride%4 != 0 {
			errs = append(errs, fmt.Errorf("buffer %d: stride %d is not a non-zero multiple of 4", slot, b.Stride))
		}
		if len(b.Attributes) == 0 {
			errs = append(errs, fmt.Errorf("buffer %d: no attributes", slot))
		}
		for _, a := range b.Attributes {
			if _, ok := vertexFormatTypes[a.Format]; !ok {
				errs = append(errs, fmt.Errorf("buffer %d: unsupported vertex format %v", slot, a.Format))
				continue
			}
			if end := a.Offset + a.Format.Size(); end > b.Stride {
				errs = append(errs, fmt.Errorf("buffer %d: location %d ends at byte %d past stride %d",
					slot, a.Location, end, b.Stride))
			}
			if _, dup := supplied[a.Location]; dup {
				errs = append(errs, fmt.Errorf("buffer %d: location %d supplied more than once", slot, a.Location))
				continue
			}
			supplied[a.Location] = a
		}
	}

	wanted := make(map[uint32]bool, len(ep.Inputs))
	for _, in := range ep.Inputs {
		wanted[in.Location] = true
		a, ok := supplied[in.Location]
		if !ok {
			errs = append(errs, fmt.Errorf("%s input %s @location(%d) is not supplied", ep.Name, in.Name, in.Location))
			continue
		}
		if typ, known := vertexFormatTypes[a.Format]; known && typ != in.Type {
			errs = append(errs, fmt.Errorf("%s input %s @location(%d): format %v feeds %s, shader declares %s",
				ep.Name, in.Name, in.Location, a.Format, typ, in.Type))
		}
	}
	extra := make([]uint32, 0)
	for loc := range supplied {
		if !wanted[loc] {
			extra = append(extra, loc)
		}
	}
	slices.Sort(extra)
	for _, loc := range extra {
		errs = append(errs, fmt.Errorf("attribute @location(%d) has no matching %s input", loc, ep.Name))
	}
	return errors.Join(errs...)
}
