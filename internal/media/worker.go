package media

import (
	"context"
	"fmt"

	"github.com/trailscan/trailscan/internal/index"
	"github.com/trailscan/trailscan/internal/util"
)

// Worker decodes media files into frames. Workers are stateless and safe
// to share across goroutines.
type Worker struct {
	TargetSize int
	IFrameOnly bool
	MaxFrames  int // 0 keeps every decoded frame
	Warn       func(format string, args ...any)
}

func (w *Worker) warnf(format string, args ...any) {
	if w.Warn != nil {
		w.Warn(format, args...)
	}
}

// Process decodes one file and sends its frames, or a single error item,
// into out. Sends block when the channel is full; that back-pressure is
// what throttles decoding to inference throughput. Returns the failure
// marker when the file could not be decoded, nil on success.
func (w *Worker) Process(ctx context.Context, file index.FileItem, out chan<- Item) *FileError {
	switch {
	case util.IsImagePath(file.FilePath):
		return w.processImage(ctx, file, out)
	case util.IsVideoPath(file.FilePath):
		return w.processVideo(ctx, file, out)
	default:
		return w.fail(ctx, out, FileError{
			File:    file,
			Message: fmt.Sprintf("unrecognised media extension: %s", file.FilePath),
		})
	}
}

// send delivers one item unless the run is being torn down.
func (w *Worker) send(ctx context.Context, out chan<- Item, item Item) bool {
	select {
	case out <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

// fail emits the error item downstream and returns the marker.
func (w *Worker) fail(ctx context.Context, out chan<- Item, fe FileError) *FileError {
	w.send(ctx, out, Item{Err: &fe})
	return &fe
}
