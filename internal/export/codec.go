package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/trailscan/trailscan/internal/config"
	"github.com/trailscan/trailscan/internal/detect"
	"github.com/trailscan/trailscan/internal/index"
	"github.com/trailscan/trailscan/internal/util"
)

// csvHeader is the fixed CSV field order.
var csvHeader = []string{
	"folder_id", "file_id", "file_path", "shoot_time",
	"frame_index", "total_frames", "is_iframe", "bboxes", "label", "error",
}

// ResultPath returns the artefact path for a scan root.
func ResultPath(root string, format config.ExportFormat) string {
	return filepath.Join(root, "result."+string(format))
}

// Encode serialises records in the given format.
func Encode(frames []Frame, format config.ExportFormat) ([]byte, error) {
	switch format {
	case config.ExportJSON:
		return EncodeJSON(frames)
	case config.ExportCSV:
		return EncodeCSV(frames)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// EncodeJSON serialises records as a JSON array.
func EncodeJSON(frames []Frame) ([]byte, error) {
	if frames == nil {
		frames = []Frame{}
	}
	data, err := json.Marshal(frames)
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return data, nil
}

// DecodeJSON parses a JSON artefact.
func DecodeJSON(data []byte) ([]Frame, error) {
	var frames []Frame
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("failed to parse JSON records: %w", err)
	}
	return frames, nil
}

// EncodeCSV serialises records with the fixed header. The bboxes field is
// the JSON of the array; the csv writer embeds it quoted with internal
// quotes doubled.
func EncodeCSV(frames []Frame) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, f := range frames {
		var bboxes string
		if f.Bboxes != nil {
			data, err := json.Marshal(f.Bboxes)
			if err != nil {
				return nil, fmt.Errorf("failed to encode bboxes: %w", err)
			}
			bboxes = string(data)
		}

		row := []string{
			strconv.FormatUint(uint64(f.File.FolderID), 10),
			strconv.FormatUint(uint64(f.File.FileID), 10),
			f.File.FilePath,
			deref(f.ShootTime),
			strconv.Itoa(f.FrameIndex),
			strconv.Itoa(f.TotalFrames),
			strconv.FormatBool(f.IsIFrame),
			bboxes,
			deref(f.Label),
			deref(f.Error),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses a CSV artefact produced by EncodeCSV.
func DecodeCSV(data []byte) ([]Frame, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(csvHeader)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV records: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV artefact has no header")
	}

	frames := make([]Frame, 0, len(rows)-1)
	for _, row := range rows[1:] {
		folderID, err := strconv.ParseUint(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid folder_id %q: %w", row[0], err)
		}
		fileID, err := strconv.ParseUint(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid file_id %q: %w", row[1], err)
		}
		frameIndex, err := strconv.Atoi(row[4])
		if err != nil {
			return nil, fmt.Errorf("invalid frame_index %q: %w", row[4], err)
		}
		totalFrames, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, fmt.Errorf("invalid total_frames %q: %w", row[5], err)
		}
		isIFrame, err := strconv.ParseBool(row[6])
		if err != nil {
			return nil, fmt.Errorf("invalid is_iframe %q: %w", row[6], err)
		}

		f := Frame{
			File: index.FileItem{
				FolderID: uint(folderID),
				FileID:   uint(fileID),
				FilePath: row[2],
			},
			ShootTime:   optional(row[3]),
			FrameIndex:  frameIndex,
			TotalFrames: totalFrames,
			IsIFrame:    isIFrame,
			Label:       optional(row[8]),
			Error:       optional(row[9]),
		}
		if row[7] != "" {
			var boxes []detect.Bbox
			if err := json.Unmarshal([]byte(row[7]), &boxes); err != nil {
				return nil, fmt.Errorf("invalid bboxes %q: %w", row[7], err)
			}
			if boxes == nil {
				boxes = []detect.Bbox{}
			}
			f.Bboxes = boxes
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// WriteArtefact writes the full record set atomically so the on-disk
// artefact is always schema-valid.
func WriteArtefact(path string, format config.ExportFormat, frames []Frame) error {
	data, err := Encode(frames, format)
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write artefact %s: %w", path, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
