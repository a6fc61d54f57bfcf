package firstdraw

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/firstdraw/internal/gpu"
)

// Vertex data in clip space. Every buffer is one attribute, tightly packed.

// TrianglePositions returns the triangle's corners as (x, y) pairs:
// bottom left, bottom right, top center.
func TrianglePositions() []float32 {
	return []float32{
		-0.5, -0.5,
		0.5, -0.5,
		0.0, 0.5,
	}
}

// TriangleColors returns one RGB color per triangle vertex, all red.
func TriangleColors() []float32 {
	return []float32{
		1.0, 0.0, 0.0,
		1.0, 0.0, 0.0,
		1.0, 0.0, 0.0,
	}
}

// QuadPositions returns the four corners of a unit square centered at the
// origin, counter-clockwise from bottom left.
func QuadPositions() []float32 {
	return []float32{
		-0.5, -0.5,
		0.5, -0.5,
		0.5, 0.5,
		-0.5, 0.5,
	}
}

// QuadTexCoords returns the texture coordinate of each quad corner. Texture
// rows run top to bottom, so the bottom-left corner samples (0, 1).
func QuadTexCoords() []float32 {
	return []float32{
		0, 1,
		1, 1,
		1, 0,
		0, 0,
	}
}

// QuadIndices returns two triangles sharing the diagonal from vertex 0 to
// vertex 2.
func QuadIndices() []uint16 {
	return []uint16{0, 1, 2, 3, 2, 0}
}

// Vertex components per attribute.
const (
	positionComponents = 2
	colorComponents    = 3
	texCoordComponents = 2
)

// float32Layout describes a buffer holding one float32 vector per vertex at
// the given shader location.
func float32Layout(components, location uint32) gpu.VertexBufferLayout {
	var format gputypes.VertexFormat
	switch components {
	case 2:
		format = gputypes.VertexFormatFloat32x2
	case 3:
		format = gputypes.VertexFormatFloat32x3
	default:
		format = gputypes.VertexFormatFloat32x4
	}
	return gpu.VertexBufferLayout{
		Stride: uint64(components) * gpu.Float32Width,
		Attributes: []gpu.VertexAttribute{{
			Format:   format,
			Offset:   0,
			Location: location,
		}},
	}
}
