// Package export owns the result record schema, the shared result buffer,
// the checkpoint-aware sink pool and the resume reconciler.
package export

import (
	"time"

	"github.com/trailscan/trailscan/internal/detect"
	"github.com/trailscan/trailscan/internal/index"
)

// Frame is one output record of the exported artefact. On the successful
// path Bboxes is non-nil (possibly empty) and Label is set; on the failed
// path Error is set and both are absent.
type Frame struct {
	File        index.FileItem `json:"file"`
	ShootTime   *string        `json:"shoot_time"`
	FrameIndex  int            `json:"frame_index"`
	TotalFrames int            `json:"total_frames"`
	IsIFrame    bool           `json:"is_iframe"`
	Bboxes      []detect.Bbox  `json:"bboxes"`
	Label       *string        `json:"label"`
	Error       *string        `json:"error"`
}

// FromResult converts a detector result into an export record.
func FromResult(r detect.Result) Frame {
	if r.Err != nil {
		msg := r.Err.Message
		// An error record is the file's only record; total_frames of one
		// makes progress accounting exact for the reconciler.
		return Frame{
			File:        r.Err.File,
			FrameIndex:  0,
			TotalFrames: 1,
			Error:       &msg,
		}
	}

	f := r.Frame
	rec := Frame{
		File:        f.File,
		FrameIndex:  f.FrameIndex,
		TotalFrames: f.TotalFrames,
		IsIFrame:    f.IsIFrame,
		Bboxes:      r.Bboxes,
		Label:       &r.Label,
	}
	if rec.Bboxes == nil {
		rec.Bboxes = []detect.Bbox{}
	}
	if f.ShootTime != nil {
		s := f.ShootTime.Format(time.RFC3339)
		rec.ShootTime = &s
	}
	return rec
}
