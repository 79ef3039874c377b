// Package ffmpeg spawns the external transcoder and exposes its output as
// an event stream of log lines, parsed input streams and raw frames.
package ffmpeg

import "fmt"

// Options describes one transcode invocation.
type Options struct {
	Input      string
	TargetSize int  // Output edge length; frames are letterboxed to TargetSize x TargetSize
	IFrameOnly bool // Decode only key frames
}

// BuildArgs constructs the transcoder argument list. The scale+pad filter
// performs the geometric letterbox so output frames are already square
// rgb24 at the model input size.
func BuildArgs(opts Options) []string {
	args := []string{"-hide_banner", "-loglevel", "level+info"}

	if opts.IFrameOnly {
		args = append(args, "-skip_frame", "nokey")
	}

	args = append(args,
		"-i", opts.Input,
		"-an",
		"-vf", fmt.Sprintf(
			"scale=w=%d:h=%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
			opts.TargetSize, opts.TargetSize, opts.TargetSize, opts.TargetSize),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-fps_mode", "vfr",
		"-",
	)

	return args
}
