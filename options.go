package firstdraw

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/firstdraw/internal/gpu"
)

// Default surface size in pixels.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Option configures a program run.
//
// Example:
//
//	report, err := firstdraw.RunTriangle(ctx,
//	    firstdraw.WithSize(800, 600),
//	    firstdraw.WithSnapshot(),
//	)
type Option func(*options)

// options holds the configuration of one run.
type options struct {
	backend    string
	provider   gpucontext.DeviceProvider
	width      int
	height     int
	clearColor gputypes.Color
	imagePath  string
	snapshot   bool
}

// defaultOptions returns the default run options.
func defaultOptions() options {
	return options{
		width:      DefaultWidth,
		height:     DefaultHeight,
		clearColor: gpu.DefaultClearColor,
	}
}

func newOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithBackend selects a HAL backend by name ("vulkan", "noop"). The default
// tries every hardware backend in priority order. The noop backend is only
// used when named here.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithDeviceProvider draws on a device owned by a host instead of opening
// one. The provider must also expose HalDevice() and HalQueue(); the host
// keeps ownership of the device.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithSize sets the surface size in pixels.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithClearColor replaces the gray background.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithImage sets the image file the quad is textured with.
func WithImage(path string) Option {
	return func(o *options) {
		o.imagePath = path
	}
}

// WithSnapshot reads the surface back after the frame and stores it in
// Report.Image. It is the only option that makes a run wait for the GPU.
func WithSnapshot() Option {
	return func(o *options) {
		o.snapshot = true
	}
}
