// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"sort"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Stage is a shader stage an entry point runs in.
type Stage string

// Shader stages.
const (
	StageVertex   Stage = "vertex"
	StageFragment Stage = "fragment"
)

// EntryPoint is one @vertex or @fragment function of a WGSL module.
type EntryPoint struct {
	Name   string
	Stage  Stage
	Inputs []ShaderInput
}

// ShaderInput is one @location(n) input of an entry point.
type ShaderInput struct {
	Location uint32
	Name     string
	// Type is the WGSL spelling of the input type (e.g. "vec2<f32>").
	Type string
}

// ReflectEntryPoints lists the vertex and fragment entry points of a WGSL
// source together with their @location inputs, sorted by location. Inputs
// may be declared as parameters or as members of a struct parameter.
func ReflectEntryPoints(source string) ([]EntryPoint, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, err
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, err
	}
	return reflectModule(module)
}

func reflectModule(module *ir.Module) ([]EntryPoint, error) {
	var eps []EntryPoint
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		var stage Stage
		switch ep.Stage {
		case ir.StageVertex:
			stage = StageVertex
		case ir.StageFragment:
			stage = StageFragment
		default:
			continue
		}

		var inputs []ShaderInput
		for _, arg := range ep.Function.Arguments {
			if arg.Binding != nil {
				if loc, ok := (*arg.Binding).(ir.LocationBinding); ok {
					inputs = append(inputs, ShaderInput{
						Location: loc.Location,
						Name:     arg.Name,
						Type:     typeName(module, arg.Type),
					})
				}
				continue
			}
			st, ok := structOf(module, arg.Type)
			if !ok {
				return nil, fmt.Errorf("entry point %s: argument %s has no binding", ep.Name, arg.Name)
			}
			for _, m := range st.Members {
				if m.Binding == nil {
					continue
				}
				if loc, ok := (*m.Binding).(ir.LocationBinding); ok {
					inputs = append(inputs, ShaderInput{
						Location: loc.Location,
						Name:     m.Name,
						Type:     typeName(module, m.Type),
					})
				}
			}
		}

		sort.Slice(inputs, func(a, b int) bool { return inputs[a].Location < inputs[b].Location })
		for j := 1; j < len(inputs); j++ {
			if inputs[j].Location == inputs[j-1].Location {
				return nil, fmt.Errorf("entry point %s: location %d declared twice", ep.Name, inputs[j].Location)
			}
		}
		eps = append(eps, EntryPoint{Name: ep.Name, Stage: stage, Inputs: inputs})
	}
	return eps, nil
}

// FindEntryPoint returns the entry point called name in the given stage.
func FindEntryPoint(eps []EntryPoint, stage Stage, name string) (EntryPoint, bool) {
	for _, ep := range eps {
		if ep.Stage == stage && ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

func structOf(module *ir.Module, h ir.TypeHandle) (ir.StructType, bool) {
	if int(h) >= len(module.Types) {
		return ir.StructType{}, false
	}
	st, ok := module.Types[h].Inner.(ir.StructType)
	return st, ok
}

func typeName(module *ir.Module, h ir.TypeHandle) string {
	if int(h) >= len(module.Types) {
		return "?"
	}
	switch t := module.Types[h].Inner.(type) {
	case ir.ScalarType:
		return scalarName(t)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", t.Size, scalarName(t.Scalar))
	default:
		if name := module.Types[h].Name; name != "" {
			return name
		}
		return fmt.Sprintf("%T", t)
	}
}

func scalarName(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarFloat:
		if s.Width == 2 {
			return "f16"
		}
		return "f32"
	case ir.ScalarSint:
		return "i32"
	case ir.ScalarUint:
		return "u32"
	case ir.ScalarBool:
		return "bool"
	default:
		return "?"
	}
}
