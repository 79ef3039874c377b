package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/trailscan/trailscan/internal/index"
)

// jpegEOI is the JPEG end-of-image marker.
var jpegEOI = []byte{0xff, 0xd9}

// processImage decodes one still image and emits a single frame.
func (w *Worker) processImage(ctx context.Context, file index.FileItem, out chan<- Item) *FileError {
	data, err := os.ReadFile(file.FilePath)
	if err != nil {
		return w.fail(ctx, out, FileError{File: file, Message: fmt.Sprintf("read image: %v", err)})
	}

	img, err := decodeImage(data)
	if err != nil {
		return w.fail(ctx, out, FileError{File: file, Message: fmt.Sprintf("decode image: %v", err)})
	}

	bounds := img.Bounds()
	tensor, padX, padY, ratio := Letterbox(img, w.TargetSize)

	frame := &Frame{
		File:        file,
		Data:        tensor,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		PadX:        padX,
		PadY:        padY,
		Ratio:       ratio,
		FrameIndex:  0,
		TotalFrames: 1,
		ShootTime:   exifShootTime(data),
	}

	w.send(ctx, out, Item{Frame: frame})
	return nil
}

// decodeImage decodes via the registered codecs, retrying lightly-malformed
// camera JPEGs with the end-of-image marker restored. Trail cameras cut
// power mid-write often enough that truncated files are worth recovering.
func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}

	if len(data) > 2 && data[0] == 0xff && data[1] == 0xd8 && !bytes.HasSuffix(data, jpegEOI) {
		patched := append(append([]byte{}, data...), jpegEOI...)
		if img, jerr := jpeg.Decode(bytes.NewReader(patched)); jerr == nil {
			return img, nil
		}
	}

	return nil, err
}

// exifShootTime extracts the capture time from EXIF metadata, preferring
// DateTimeOriginal and falling back to the modify date. Returns nil when no
// usable tag is present.
func exifShootTime(data []byte) *time.Time {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		if t, err := time.ParseInLocation("2006:01:02 15:04:05", raw, time.Local); err == nil {
			return &t
		}
	}
	return nil
}
