package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trailscan/trailscan/internal/index"
)

// ErrBadCheckpoint marks an unusable resume artefact. Fatal at startup.
var ErrBadCheckpoint = errors.New("bad checkpoint")

// Reconcile narrows the work set using a prior run's artefact. Files whose
// observed record count matches their advertised total_frames are removed;
// every parsed record is replayed into the buffer so the new run's final
// artefact contains both replayed and fresh records.
func Reconcile(path string, work map[string]index.FileItem, buffer *Buffer) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: checkpoint file does not exist: %s", ErrBadCheckpoint, path)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: checkpoint path is not a regular file: %s", ErrBadCheckpoint, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: cannot read checkpoint: %v", ErrBadCheckpoint, err)
	}

	var frames []Frame
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		frames, err = DecodeJSON(data)
	case ".csv":
		frames, err = DecodeCSV(data)
	default:
		return fmt.Errorf("%w: invalid checkpoint extension: %s", ErrBadCheckpoint, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadCheckpoint, err)
	}

	counts := make(map[string]int)
	totals := make(map[string]int)
	for _, f := range frames {
		key := f.File.FilePath
		counts[key]++
		if _, seen := totals[key]; !seen {
			totals[key] = f.TotalFrames
		}
		if counts[key] == totals[key] {
			delete(work, key)
		}
	}

	buffer.Extend(frames)
	return nil
}
