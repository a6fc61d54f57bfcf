// Package firstdraw draws a first frame with WebGPU: a red triangle, or an
// image-textured quad, on a gray background.
//
// # Overview
//
// Each program runs one linear sequence and exits:
//
//	triangle: acquire → upload → pipeline → submit
//	quad:     acquire → decode → upload → texture → pipeline → submit
//
// The quad starts decoding its image before acquiring the device and waits
// for it before uploading anything.
//
// The device comes from the pure Go WebGPU implementation
// (github.com/gogpu/wgpu) or from a host that shares its device through
// gpucontext.DeviceProvider. The surface is an off-screen color target
// identified by the handle "canvas-view"; WithSnapshot reads it back after
// the frame so the result can be inspected or saved.
//
// # Quick Start
//
//	report, err := firstdraw.RunTriangle(ctx, firstdraw.WithSnapshot())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	f, _ := os.Create("triangle.png")
//	defer f.Close()
//	_ = png.Encode(f, report.Image)
//
// The quad needs an image file:
//
//	report, err := firstdraw.RunQuad(ctx, firstdraw.WithImage("photo.png"))
//
// # Errors
//
// Every failure is fatal and is returned as an *Error carrying one of three
// kinds (see ErrUnsupported, ErrDecodeFailure, ErrValidationFailure) and the
// Stage it happened in. Context cancellation is returned as is.
//
// # Logging
//
// firstdraw is silent by default. Call SetLogger to see adapter selection,
// buffer sizes and frame submission.
package firstdraw
