package firstdraw

import (
	"context"
	"errors"
	"image"
	"image/color"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/firstdraw/internal/gpu"
)

// providerWithoutHAL is a host that shares no HAL device.
type providerWithoutHAL struct {
	gpucontext.DeviceProvider
}

func TestRunTriangleNoop(t *testing.T) {
	report, err := RunTriangle(context.Background(), WithBackend("noop"))
	if err != nil {
		t.Fatalf("RunTriangle failed: %v", err)
	}

	want := []Stage{StageAcquire, StageUpload, StagePipeline, StageSubmit}
	if !slices.Equal(report.Stages, want) {
		t.Errorf("stages = %v, want %v", report.Stages, want)
	}
	if report.DrawCount != 3 || report.Indexed {
		t.Errorf("draw = %d indexed=%v, want 3 non-indexed", report.DrawCount, report.Indexed)
	}
	if !strings.Contains(report.Adapter, "noop") {
		t.Errorf("adapter = %q", report.Adapter)
	}
	if report.Image != nil {
		t.Error("no snapshot was requested")
	}
}

func TestRunTriangleSnapshotNoop(t *testing.T) {
	report, err := RunTriangle(context.Background(), WithBackend("noop"), WithSize(40, 30), WithSnapshot())
	if err != nil {
		t.Fatalf("RunTriangle failed: %v", err)
	}
	if !report.Reached(StageSnapshot) {
		t.Error("snapshot stage not reached")
	}
	if report.Image == nil || report.Image.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Errorf("snapshot bounds = %v", report.Image)
	}
}

func TestRunTriangleUnsupported(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"unknown backend", []Option{WithBackend("metal-on-toaster")}},
		{"zero surface", []Option{WithBackend("noop"), WithSize(0, 0)}},
		{"provider without HAL", []Option{WithDeviceProvider(providerWithoutHAL{})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := RunTriangle(context.Background(), tt.opts...)
			if !errors.Is(err, ErrUnsupported) {
				t.Fatalf("expected ErrUnsupported, got %v", err)
			}
			var fe *Error
			if !errors.As(err, &fe) || fe.Stage != StageAcquire {
				t.Errorf("error stage = %v, want acquire", err)
			}
			if report.Reached(StageUpload) {
				t.Error("upload must not run after a failed acquire")
			}
		})
	}
}

func TestRunTriangleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := RunTriangle(ctx, WithBackend("noop"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var fe *Error
	if errors.As(err, &fe) {
		t.Error("cancellation should not be classified")
	}
	if len(report.Stages) != 0 {
		t.Errorf("stages = %v, want none", report.Stages)
	}
}

func TestTriangleLayoutsMatchShader(t *testing.T) {
	layouts := triangleLayouts()
	if len(layouts) != 2 {
		t.Fatalf("got %d layouts", len(layouts))
	}
	if layouts[0].Stride != 8 || layouts[1].Stride != 12 {
		t.Errorf("strides = %d, %d; want 8, 12", layouts[0].Stride, layouts[1].Stride)
	}
}

// TestTriangleHardware draws on a real adapter and checks the frame: a red
// triangle over the center, gray corners.
func TestTriangleHardware(t *testing.T) {
	report, err := RunTriangle(context.Background(), WithBackend("vulkan"), WithSize(64, 64), WithSnapshot())
	if errors.Is(err, ErrUnsupported) {
		t.Skipf("no Vulkan adapter: %v", err)
	}
	if err != nil {
		t.Fatalf("RunTriangle failed: %v", err)
	}
	img := report.Image

	gray := color.RGBA{R: 153, G: 153, B: 153, A: 255}
	red := color.RGBA{R: 255, A: 255}
	checks := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"center", 32, 32, red},
		{"top left corner", 2, 2, gray},
		{"bottom right corner", 61, 61, gray},
		{"left of apex", 20, 18, gray},
	}
	for _, c := range checks {
		if got := img.RGBAAt(c.x, c.y); !near(got, c.want) {
			t.Errorf("%s (%d,%d) = %v, want %v", c.name, c.x, c.y, got, c.want)
		}
	}
}

// near compares colors with a small tolerance for rounding differences.
func near(a, b color.RGBA) bool {
	d := func(x, y uint8) bool {
		diff := int(x) - int(y)
		return diff >= -2 && diff <= 2
	}
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

// TestTrianglePositionsReadBackHardware uploads the triangle positions and
// reads them back unchanged.
func TestTrianglePositionsReadBackHardware(t *testing.T) {
	d, err := gpu.Open(context.Background(), "vulkan")
	if errors.Is(err, gpu.ErrNoAdapter) {
		t.Skipf("no Vulkan adapter: %v", err)
	}
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	b, err := d.UploadFloat32("triangle_positions", TrianglePositions())
	if err != nil {
		t.Fatalf("UploadFloat32 failed: %v", err)
	}
	defer b.Release()

	out, err := b.ReadBack(context.Background())
	if err != nil {
		t.Fatalf("ReadBack failed: %v", err)
	}
	if got := gpu.DecodeFloat32(out); !slices.Equal(got, TrianglePositions()) {
		t.Errorf("ReadBack = %v, want %v", got, TrianglePositions())
	}
}
