package firstdraw

import _ "embed"

// Shader entry points shared by both programs.
const (
	vertexEntry   = "vertexMain"
	fragmentEntry = "fragmentMain"
)

//go:embed shaders/triangle.wgsl
var triangleShaderSource string

//go:embed shaders/quad.wgsl
var quadShaderSource string
