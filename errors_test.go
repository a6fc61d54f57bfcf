package firstdraw

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/firstdraw/internal/bitmap"
	"github.com/gogpu/firstdraw/internal/gpu"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		stage    Stage
		err      error
		wantKind Kind
		sentinel error
	}{
		{"no adapter", StageAcquire, fmt.Errorf("%w: none", gpu.ErrNoAdapter), KindUnsupported, ErrUnsupported},
		{"no surface", StageAcquire, fmt.Errorf("%w: bad size", gpu.ErrNoSurface), KindUnsupported, ErrUnsupported},
		{"decode", StageDecode, fmt.Errorf("%w: eof", bitmap.ErrDecode), KindDecodeFailure, ErrDecodeFailure},
		{"validation", StagePipeline, fmt.Errorf("%w: stride", gpu.ErrValidation), KindValidationFailure, ErrValidationFailure},
		{"released", StageSubmit, gpu.ErrReleased, KindValidationFailure, ErrValidationFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.stage, tt.err)
			var fe *Error
			if !errors.As(err, &fe) {
				t.Fatalf("classify returned %T, want *Error", err)
			}
			if fe.Kind != tt.wantKind || fe.Stage != tt.stage {
				t.Errorf("got kind %v stage %s, want %v %s", fe.Kind, fe.Stage, tt.wantKind, tt.stage)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if !errors.Is(err, tt.err) {
				t.Error("cause should stay reachable")
			}
			if !strings.Contains(err.Error(), string(tt.stage)) {
				t.Errorf("message %q does not name the stage", err)
			}
		})
	}
}

func TestClassifyPassThrough(t *testing.T) {
	if classify(StageAcquire, nil) != nil {
		t.Error("nil should stay nil")
	}
	if err := classify(StageAcquire, context.Canceled); err != context.Canceled {
		t.Errorf("context error should pass through, got %v", err)
	}
	wrapped := fmt.Errorf("open: %w", context.DeadlineExceeded)
	if err := classify(StageAcquire, wrapped); err != wrapped {
		t.Errorf("wrapped context error should pass through, got %v", err)
	}

	first := classify(StageDecode, bitmap.ErrDecode)
	if again := classify(StageSubmit, first); again != first {
		t.Error("an *Error should not be classified twice")
	}
}

func TestUnsupportedMessage(t *testing.T) {
	err := classify(StageAcquire, gpu.ErrNoAdapter)
	if !strings.Contains(err.Error(), "webgpu not supported on this machine") {
		t.Errorf("message %q", err)
	}
	if errors.Is(err, ErrValidationFailure) || errors.Is(err, ErrDecodeFailure) {
		t.Error("unsupported error matches another kind")
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindUnsupported, "unsupported"},
		{KindDecodeFailure, "decode failure"},
		{KindValidationFailure, "validation failure"},
		{Kind(9), "Kind(9)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}
