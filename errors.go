package firstdraw

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/firstdraw/internal/bitmap"
	"github.com/gogpu/firstdraw/internal/gpu"
)

// Failure kinds. Test with errors.Is.
var (
	// ErrUnsupported means the machine cannot provide an adapter, a device
	// or a drawing surface.
	ErrUnsupported = errors.New("webgpu not supported on this machine")

	// ErrDecodeFailure means the image for the quad could not be loaded.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrValidationFailure means a buffer, shader, pipeline, binding set or
	// render pass was inconsistent with the rest of the frame.
	ErrValidationFailure = errors.New("validation failure")
)

// Kind classifies a fatal error.
type Kind int

const (
	KindUnsupported Kind = iota + 1
	KindDecodeFailure
	KindValidationFailure
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindDecodeFailure:
		return "decode failure"
	case KindValidationFailure:
		return "validation failure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnsupported:
		return ErrUnsupported
	case KindDecodeFailure:
		return ErrDecodeFailure
	default:
		return ErrValidationFailure
	}
}

// Error is the fatal error a program stops with.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("firstdraw: %s: %v: %v", e.Stage, e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// classify wraps err from stage into an *Error. Context errors are returned
// as is.
func classify(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}

	kind := KindValidationFailure
	switch {
	case errors.Is(err, gpu.ErrNoAdapter), errors.Is(err, gpu.ErrNoSurface):
		kind = KindUnsupported
	case errors.Is(err, bitmap.ErrDecode):
		kind = KindDecodeFailure
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}
