package firstdraw

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/firstdraw/internal/bitmap"
	"github.com/gogpu/firstdraw/internal/gpu"
)

// Binding slots of the quad's binding set.
const (
	samplerBinding = 0
	textureBinding = 1
)

// RunQuad draws the image set with WithImage on a quad and returns what it
// did. Decoding starts before the device is acquired and is awaited before
// anything is uploaded, so a decode failure never reaches pipeline creation.
func RunQuad(ctx context.Context, opts ...Option) (*Report, error) {
	s := newSession("quad", opts)
	defer s.close()

	var decoded <-chan bitmap.Result
	if s.opts.imagePath != "" {
		decoded = bitmap.LoadAsync(ctx, s.opts.imagePath)
	}

	if err := s.step(ctx, StageAcquire, func() error { return s.acquire(ctx) }); err != nil {
		return s.report, err
	}

	var img *image.RGBA
	if err := s.step(ctx, StageDecode, func() error {
		if decoded == nil {
			return fmt.Errorf("%w: no image path", bitmap.ErrDecode)
		}
		r := <-decoded
		if r.Err != nil {
			return r.Err
		}
		img = r.Image
		Logger().Debug("firstdraw: image decoded", "format", r.Format, "bounds", img.Bounds())
		return nil
	}); err != nil {
		return s.report, err
	}

	var positions, texCoords, indices *gpu.Buffer
	if err := s.step(ctx, StageUpload, func() error {
		var err error
		if positions, err = s.uploadFloat32("quad_positions", QuadPositions()); err != nil {
			return err
		}
		if texCoords, err = s.uploadFloat32("quad_texcoords", QuadTexCoords()); err != nil {
			return err
		}
		if indices, err = s.device.UploadUint16("quad_indices", QuadIndices()); err != nil {
			return err
		}
		s.onClose(indices.Release)
		return nil
	}); err != nil {
		return s.report, err
	}

	var (
		layout *gpu.BindingSetLayout
		set    *gpu.BindingSet
	)
	if err := s.step(ctx, StageTexture, func() error {
		var err error
		layout, set, err = s.bindImage(img)
		return err
	}); err != nil {
		return s.report, err
	}

	var pipeline *gpu.Pipeline
	if err := s.step(ctx, StagePipeline, func() error {
		var err error
		pipeline, err = s.pipeline("quad", quadShaderSource, quadLayouts(), layout)
		return err
	}); err != nil {
		return s.report, err
	}

	err := s.present(ctx, &gpu.RenderPass{
		Pipeline:      pipeline,
		VertexBuffers: []*gpu.Buffer{positions, texCoords},
		IndexBuffer:   indices,
		BindingSet:    set,
		Draw:          gpu.DrawCall{Count: uint32(indices.Len()), Indexed: true}, //nolint:gosec // six indices
	})
	return s.report, err
}

// bindImage uploads img as a texture and binds it, with a linear sampler,
// to a binding set readable by the fragment stage.
func (s *session) bindImage(img *image.RGBA) (*gpu.BindingSetLayout, *gpu.BindingSet, error) {
	d := s.device

	tex, err := d.CreateTextureFromImage("quad_image", img)
	if err != nil {
		return nil, nil, err
	}
	s.onClose(tex.Release)

	sampler, err := d.CreateLinearSampler("quad_sampler")
	if err != nil {
		return nil, nil, err
	}
	s.onClose(sampler.Release)

	layout, err := d.CreateBindingSetLayout("quad_bindings",
		gpu.BindingSlot{Binding: samplerBinding, Kind: gpu.BindingSampler},
		gpu.BindingSlot{Binding: textureBinding, Kind: gpu.BindingTexture},
	)
	if err != nil {
		return nil, nil, err
	}
	s.onClose(layout.Release)

	set, err := d.CreateBindingSet("quad_binding_set", layout,
		gpu.BindingEntry{Binding: samplerBinding, Sampler: sampler},
		gpu.BindingEntry{Binding: textureBinding, Texture: tex},
	)
	if err != nil {
		return nil, nil, err
	}
	s.onClose(set.Release)
	return layout, set, nil
}

// quadLayouts returns the vertex buffer slots of the quad: positions at
// location 0, texture coordinates at location 1.
func quadLayouts() []gpu.VertexBufferLayout {
	return []gpu.VertexBufferLayout{
		float32Layout(positionComponents, 0),
		float32Layout(texCoordComponents, 1),
	}
}
