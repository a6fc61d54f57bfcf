// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// ShaderProgram is a compiled WGSL module with its reflected entry points.
type ShaderProgram struct {
	device *Device
	module hal.ShaderModule

	label       string
	entryPoints []EntryPoint
	spirvSize   int
}

// CompileShader compiles WGSL source into a shader module. The source is
// first run through naga so compile errors are reported the same way on
// every backend. Failures wrap ErrValidation.
func (d *Device) CompileShader(label, source string) (*ShaderProgram, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}

	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s: %w", ErrValidation, label, err)
	}

	eps, err := ReflectEntryPoints(source)
	if err != nil {
		return nil, fmt.Errorf("%w: reflect %s: %w", ErrValidation, label, err)
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create shader module %s: %w", ErrValidation, label, err)
	}

	slogger().Debug("gpu: shader compiled", "label", label, "spirv_bytes", len(spirv), "entry_points", len(eps))
	return &ShaderProgram{
		device:      d,
		module:      module,
		label:       label,
		entryPoints: eps,
		spirvSize:   len(spirv),
	}, nil
}

// Label returns the debug label.
func (p *ShaderProgram) Label() string { return p.label }

// EntryPoints returns the reflected vertex and fragment entry points.
func (p *ShaderProgram) EntryPoints() []EntryPoint { return p.entryPoints }

// EntryPoint looks up an entry point by stage and name.
func (p *ShaderProgram) EntryPoint(stage Stage, name string) (EntryPoint, bool) {
	return FindEntryPoint(p.entryPoints, stage, name)
}

// Release destroys the shader module. Safe to call multiple times.
func (p *ShaderProgram) Release() {
	if p.module == nil || p.device.device == nil {
		return
	}
	p.device.device.DestroyShaderModule(p.module)
	p.module = nil
}
