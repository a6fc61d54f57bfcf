// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "errors"

// Acquisition errors. Both mean the platform cannot run the programs.
var (
	// ErrNoAdapter is returned when no usable GPU adapter or device exists.
	ErrNoAdapter = errors.New("gpu: no suitable adapter")

	// ErrNoSurface is returned when the drawing surface cannot be configured.
	ErrNoSurface = errors.New("gpu: drawing surface unavailable")
)

// ErrValidation is wrapped by every error caused by an inconsistent resource
// description: size mismatches, layout mismatches, shader compile errors,
// and HAL object creation failures.
var ErrValidation = errors.New("gpu: validation failed")

// ErrReleased is returned when a resource is used after Release/Close.
var ErrReleased = errors.New("gpu: resource released")

// ErrReadBackUnsupported is returned by Buffer.ReadBack on backends that
// execute no copies.
var ErrReadBackUnsupported = errors.New("gpu: backend does not execute copies")
