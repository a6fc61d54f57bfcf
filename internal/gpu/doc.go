// Package gpu holds the WebGPU plumbing behind the firstdraw programs.
//
// It wraps the gogpu/wgpu HAL with the handful of resource types a single
// draw call needs:
//
//   - Device: adapter selection, logical device and queue
//   - Surface: the presentable color target the frame is drawn into
//   - Buffer: sealed vertex and index data with an exact byte size
//   - ShaderProgram: a WGSL module with reflected vertex inputs
//   - Pipeline and BindingSetLayout: frozen render state
//   - Texture, Sampler and BindingSet: fragment-stage resources
//   - RenderPass and Submission: one recorded pass, submitted once
//
// # Backends
//
// Backends are looked up by name in a registry. The Vulkan backend is
// registered as a hardware backend and is the only one picked by Open when
// no name is given. The noop backend accepts every call and renders
// nothing; it exists for tests and dry runs and is only used when asked
// for by name.
//
//	dev, err := gpu.Open(ctx, "")
//	if err != nil {
//	    return err // wraps ErrNoAdapter
//	}
//	defer dev.Close()
//
// # Errors
//
// Acquisition failures wrap ErrNoAdapter or ErrNoSurface. Everything the
// package rejects before or during resource creation wraps ErrValidation.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. Each program drives
// one Device from one goroutine, top to bottom.
package gpu
