package firstdraw

import (
	"image"
	"slices"
)

// Stage names a step of a program's linear sequence.
type Stage string

const (
	StageAcquire  Stage = "acquire"
	StageDecode   Stage = "decode"
	StageUpload   Stage = "upload"
	StageTexture  Stage = "texture"
	StagePipeline Stage = "pipeline"
	StageSubmit   Stage = "submit"
	StageSnapshot Stage = "snapshot"
)

// Report describes what a run did. It is returned even when the run fails,
// holding the stages completed before the failure.
type Report struct {
	// Variant is "triangle" or "quad".
	Variant string
	// Stages lists the completed stages in order.
	Stages []Stage
	// Adapter describes the device the frame was drawn on.
	Adapter string
	// DrawCount is the number of vertices (or indices) drawn.
	DrawCount uint32
	// Indexed is true for an indexed draw.
	Indexed bool
	// Image is the surface content after the frame, set with WithSnapshot.
	Image *image.RGBA
}

// Reached reports whether stage completed.
func (r *Report) Reached(stage Stage) bool {
	return slices.Contains(r.Stages, stage)
}
