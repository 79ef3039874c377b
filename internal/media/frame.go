// Package media decodes still images and sampled video frames into
// model-ready tensors.
package media

import (
	"time"

	"github.com/trailscan/trailscan/internal/index"
)

// Frame is one image or one sampled video frame ready for inference.
// Data is a CHW float tensor of length 3*S*S with values in [0,1], where S
// is the model input edge. PadX/PadY are per-side letterbox pads in pixels
// of the resized (model-space) image; together with Ratio they invert model
// coordinates back to source coordinates as (x - pad) * ratio.
type Frame struct {
	File        index.FileItem
	Data        []float32
	Width       int
	Height      int
	PadX        int
	PadY        int
	Ratio       float32
	FrameIndex  int
	TotalFrames int
	IsIFrame    bool
	ShootTime   *time.Time
}

// FileError marks a per-file decode failure. It flows through the frame
// channel so every input file yields at least one downstream record.
type FileError struct {
	File    index.FileItem
	Message string
}

// Item is the tagged union flowing from media workers to detectors.
// Exactly one field is set.
type Item struct {
	Frame *Frame
	Err   *FileError
}

// SampleEvenly picks sampleSize elements spread evenly across list,
// returning the elements and their source indices. Indices are
// floor(i*len/size), distinct and ascending when sampleSize <= len.
func SampleEvenly[T any](list []T, sampleSize int) ([]T, []int) {
	n := len(list)
	if sampleSize <= 0 || n == 0 {
		return nil, nil
	}
	if sampleSize > n {
		sampleSize = n
	}

	step := float64(n) / float64(sampleSize)
	sampled := make([]T, 0, sampleSize)
	indexes := make([]int, 0, sampleSize)
	for i := 0; i < sampleSize; i++ {
		idx := int(float64(i) * step)
		sampled = append(sampled, list[idx])
		indexes = append(indexes, idx)
	}
	return sampled, indexes
}
