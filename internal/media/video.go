package media

import (
	"context"
	"fmt"

	"github.com/trailscan/trailscan/internal/ffmpeg"
	"github.com/trailscan/trailscan/internal/index"
)

// processVideo runs the external transcoder for one video, samples the
// decoded frames evenly and emits them. Recoverable decode errors are
// logged and the stream continues; any other error-level event aborts the
// file and yields a single error item.
func (w *Worker) processVideo(ctx context.Context, file index.FileItem, out chan<- Item) *FileError {
	procCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	proc, err := ffmpeg.Spawn(procCtx, ffmpeg.Options{
		Input:      file.FilePath,
		TargetSize: w.TargetSize,
		IFrameOnly: w.IFrameOnly,
	})
	if err != nil {
		return w.fail(ctx, out, FileError{File: file, Message: fmt.Sprintf("spawn transcoder: %v", err)})
	}

	var (
		width, height int
		raw           [][]byte
		fatal         string
	)

	for ev := range proc.Events() {
		switch ev := ev.(type) {
		case ffmpeg.StreamInfoEvent:
			if ev.StreamType == "video" && width == 0 {
				width = ev.Width
				height = ev.Height
			}
		case ffmpeg.FrameEvent:
			raw = append(raw, ev.Data)
		case ffmpeg.LogEvent:
			if ev.Level != ffmpeg.LevelError {
				continue
			}
			if ffmpeg.IsRecoverableDecodeError(ev.Message) {
				w.warnf("%s: recoverable decode error: %s", file.FilePath, ev.Message)
				continue
			}
			if fatal == "" {
				fatal = ev.Message
				cancel()
			}
		}
	}
	waitErr := proc.Wait()

	if fatal != "" {
		return w.fail(ctx, out, FileError{File: file, Message: fmt.Sprintf("transcode: %s", fatal)})
	}
	if len(raw) == 0 {
		msg := "transcoder produced no frames"
		if waitErr != nil {
			msg = fmt.Sprintf("%s: %v", msg, waitErr)
		}
		return w.fail(ctx, out, FileError{File: file, Message: msg})
	}
	if width == 0 || height == 0 {
		return w.fail(ctx, out, FileError{File: file, Message: "no video stream dimensions parsed"})
	}

	maxFrames := w.MaxFrames
	if maxFrames <= 0 {
		maxFrames = len(raw)
	}
	sampled, indexes := SampleEvenly(raw, maxFrames)

	// The transcoder already letterboxed geometrically; reconstruct the
	// model-space pads from the source stream dimensions.
	_, _, padX, padY, ratio := letterboxGeometry(width, height, w.TargetSize)

	shootTime := fileShootTime(file.FilePath)

	for i, data := range sampled {
		frame := &Frame{
			File:        file,
			Data:        normalizeRGB24(data, w.TargetSize),
			Width:       width,
			Height:      height,
			PadX:        padX,
			PadY:        padY,
			Ratio:       ratio,
			FrameIndex:  indexes[i],
			TotalFrames: len(sampled),
			IsIFrame:    w.IFrameOnly,
			ShootTime:   shootTime,
		}
		if !w.send(ctx, out, Item{Frame: frame}) {
			return nil
		}
	}
	return nil
}

// normalizeRGB24 converts one raw HWC rgb24 frame into a CHW float tensor
// with values in [0,1].
func normalizeRGB24(data []byte, size int) []float32 {
	plane := size * size
	tensor := make([]float32, 3*plane)
	for i := 0; i < plane; i++ {
		tensor[i] = float32(data[i*3]) / 255.0
		tensor[plane+i] = float32(data[i*3+1]) / 255.0
		tensor[2*plane+i] = float32(data[i*3+2]) / 255.0
	}
	return tensor
}
