package firstdraw

import (
	"context"

	"github.com/gogpu/firstdraw/internal/gpu"
)

// RunTriangle draws one red triangle on the clear color and returns what it
// did. Any failure stops the run and is returned as an *Error; the report
// still lists the stages completed before it.
func RunTriangle(ctx context.Context, opts ...Option) (*Report, error) {
	s := newSession("triangle", opts)
	defer s.close()

	if err := s.step(ctx, StageAcquire, func() error { return s.acquire(ctx) }); err != nil {
		return s.report, err
	}

	var positions, colors *gpu.Buffer
	if err := s.step(ctx, StageUpload, func() error {
		var err error
		if positions, err = s.uploadFloat32("triangle_positions", TrianglePositions()); err != nil {
			return err
		}
		colors, err = s.uploadFloat32("triangle_colors", TriangleColors())
		return err
	}); err != nil {
		return s.report, err
	}

	var pipeline *gpu.Pipeline
	if err := s.step(ctx, StagePipeline, func() error {
		var err error
		pipeline, err = s.pipeline("triangle", triangleShaderSource, triangleLayouts())
		return err
	}); err != nil {
		return s.report, err
	}

	err := s.present(ctx, &gpu.RenderPass{
		Pipeline:      pipeline,
		VertexBuffers: []*gpu.Buffer{positions, colors},
		Draw:          gpu.DrawCall{Count: uint32(positions.Len() / positionComponents)}, //nolint:gosec // three vertices
	})
	return s.report, err
}

// triangleLayouts returns the vertex buffer slots of the triangle: positions
// at location 0, colors at location 1.
func triangleLayouts() []gpu.VertexBufferLayout {
	return []gpu.VertexBufferLayout{
		float32Layout(positionComponents, 0),
		float32Layout(colorComponents, 1),
	}
}
