package detect

import (
	"fmt"
	"time"

	"github.com/trailscan/trailscan/internal/config"
	"github.com/trailscan/trailscan/internal/media"
)

// Result is one per-frame detection outcome, or a passed-through decode
// failure. Exactly one of Frame and Err is set.
type Result struct {
	Frame  *media.Frame
	Err    *media.FileError
	Bboxes []Bbox
	Label  string
}

// Worker owns one detector session and drains the frame channel with
// deadline-based batching: batches accumulate while input is flowing and
// flush when full, on true idle, or at shutdown.
type Worker struct {
	Config  config.DetectConfig
	Session Session
	Logf    func(format string, args ...any)
}

// Run processes items until the input channel closes. Residual frames are
// flushed before exit so no frame is dropped at shutdown. A session
// failure terminates the worker and is fatal to the run.
func (w *Worker) Run(in <-chan media.Item, out chan<- Result) error {
	batchSize := w.Config.BatchSize
	timeout := w.Config.BatchTimeout

	frames := make([]*media.Frame, 0, batchSize)
	tLast := time.Now()

	for {
		if len(frames) >= batchSize || time.Since(tLast) >= timeout {
			if len(frames) > 0 {
				if err := w.flush(frames, out); err != nil {
					return err
				}
				frames = frames[:0]
			}
			tLast = time.Now()
		}

		wait := timeout - time.Since(tLast)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)

		select {
		case item, ok := <-in:
			timer.Stop()
			if !ok {
				if len(frames) > 0 {
					return w.flush(frames, out)
				}
				return nil
			}
			if item.Err != nil {
				// Decode failures skip inference and become records directly.
				out <- Result{Err: item.Err}
			} else {
				frames = append(frames, item.Frame)
			}
			tLast = time.Now()

		case <-timer.C:
			if len(frames) > 0 {
				if err := w.flush(frames, out); err != nil {
					return err
				}
				frames = frames[:0]
			}
			tLast = time.Now()
		}
	}
}

// flush assembles a dynamic batch, runs the detector and emits one result
// per frame.
func (w *Worker) flush(frames []*media.Frame, out chan<- Result) error {
	n := len(frames)
	if w.Logf != nil {
		w.Logf("processing batch of %d frames", n)
	}

	plane := 3 * w.Config.TargetSize * w.Config.TargetSize
	input := make([]float32, n*plane)
	for i, f := range frames {
		copy(input[i*plane:(i+1)*plane], f.Data)
	}

	output, err := w.Session.Run(input, n)
	if err != nil {
		return fmt.Errorf("detector batch of %d failed: %w", n, err)
	}

	for i, f := range frames {
		boxes := w.postprocess(output, i, f)
		out <- Result{
			Frame:  f,
			Bboxes: boxes,
			Label:  LabelForBoxes(boxes),
		}
	}
	return nil
}

// postprocess filters one batch slot by confidence, maps boxes back to
// source coordinates, clips, and suppresses overlaps.
func (w *Worker) postprocess(output *Output, slot int, f *media.Frame) []Bbox {
	padX := float32(f.PadX)
	padY := float32(f.PadY)
	width := float32(f.Width)
	height := float32(f.Height)

	boxes := make([]Bbox, 0, 16)
	for det := 0; det < output.P; det++ {
		score := output.At(4, det, slot)
		if score < w.Config.ConfThreshold {
			continue
		}

		x1 := (output.At(0, det, slot) - padX) * f.Ratio
		y1 := (output.At(1, det, slot) - padY) * f.Ratio
		x2 := (output.At(2, det, slot) - padX) * f.Ratio
		y2 := (output.At(3, det, slot) - padY) * f.Ratio

		boxes = append(boxes, Bbox{
			X1:    clamp(x1, 0, width),
			Y1:    clamp(y1, 0, height),
			X2:    clamp(x2, 0, width),
			Y2:    clamp(y2, 0, height),
			Score: score,
			Class: int(output.At(5, det, slot)),
		})
	}

	return NMS(boxes, true, config.NMSTopK, w.Config.IoUThreshold)
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
