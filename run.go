package firstdraw

import (
	"context"
	"fmt"

	"github.com/gogpu/firstdraw/internal/gpu"
)

// session carries the state of one run: the device, its surface, and the
// resources to release when the run ends.
type session struct {
	opts    options
	report  *Report
	device  *gpu.Device
	surface *gpu.Surface

	// releases run in reverse order on close.
	releases []func()
}

func newSession(variant string, opts []Option) *session {
	return &session{
		opts:   newOptions(opts),
		report: &Report{Variant: variant},
	}
}

// step runs fn as stage. A failure is classified with the stage; success
// records the stage in the report.
func (s *session) step(ctx context.Context, stage Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	Logger().Debug("firstdraw: stage", "variant", s.report.Variant, "stage", stage)
	if err := classify(stage, fn()); err != nil {
		return err
	}
	s.report.Stages = append(s.report.Stages, stage)
	return nil
}

// onClose registers release to run when the session closes.
func (s *session) onClose(release func()) {
	s.releases = append(s.releases, release)
}

// acquire opens (or borrows) the device and configures the surface.
func (s *session) acquire(ctx context.Context) error {
	var (
		d   *gpu.Device
		err error
	)
	if s.opts.provider != nil {
		d, err = gpu.FromProvider(s.opts.provider)
	} else {
		d, err = gpu.Open(ctx, s.opts.backend)
	}
	if err != nil {
		return err
	}
	s.device = d
	s.report.Adapter = d.Info().String()

	surface, err := d.ConfigureSurface(gpu.DefaultSurfaceHandle, s.opts.width, s.opts.height)
	if err != nil {
		return err
	}
	s.surface = surface
	return nil
}

// uploadFloat32 uploads a vertex buffer and schedules its release.
func (s *session) uploadFloat32(label string, data []float32) (*gpu.Buffer, error) {
	b, err := s.device.UploadFloat32(label, data)
	if err != nil {
		return nil, err
	}
	s.onClose(b.Release)
	return b, nil
}

// pipeline compiles source and builds a pipeline targeting the surface.
func (s *session) pipeline(label, source string, buffers []gpu.VertexBufferLayout, layouts ...*gpu.BindingSetLayout) (*gpu.Pipeline, error) {
	shader, err := s.device.CompileShader(label, source)
	if err != nil {
		return nil, err
	}
	s.onClose(shader.Release)

	p, err := s.device.CreatePipeline(&gpu.PipelineDesc{
		Label:          label + "_pipeline",
		Shader:         shader,
		VertexEntry:    vertexEntry,
		FragmentEntry:  fragmentEntry,
		Buffers:        buffers,
		TargetFormat:   s.surface.Format(),
		BindingLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}
	s.onClose(p.Release)
	return p, nil
}

// present submits pass, then takes the snapshot if one was requested.
func (s *session) present(ctx context.Context, pass *gpu.RenderPass) error {
	pass.Label = s.report.Variant
	pass.Surface = s.surface
	pass.ClearColor = s.opts.clearColor

	if err := s.step(ctx, StageSubmit, func() error {
		if _, err := s.device.Submit(pass); err != nil {
			return err
		}
		s.report.DrawCount = pass.Draw.Count
		s.report.Indexed = pass.Draw.Indexed
		return nil
	}); err != nil {
		return err
	}

	if !s.opts.snapshot {
		return nil
	}
	return s.step(ctx, StageSnapshot, func() error {
		img, err := s.surface.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("read back %s: %w", s.surface.Handle(), err)
		}
		s.report.Image = img
		return nil
	})
}

// close releases every resource, then the surface and the device.
func (s *session) close() {
	for i := len(s.releases) - 1; i >= 0; i-- {
		s.releases[i]()
	}
	s.releases = nil
	if s.surface != nil {
		s.surface.Destroy()
	}
	if s.device != nil {
		s.device.Close()
	}
}
