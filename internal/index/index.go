// Package index walks a camera-trap folder tree and assigns stable
// identifiers to every media file found.
package index

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/trailscan/trailscan/internal/util"
)

// labelDirs are output folders from a prior organize pass. They are never
// a source of new media and are pruned from the walk.
var labelDirs = map[string]bool{
	"Animal":  true,
	"Person":  true,
	"Vehicle": true,
	"Blank":   true,
}

// FileItem identifies one media file on disk. FolderID and FileID are
// labels assigned in walk order; identity is the path alone.
type FileItem struct {
	FolderID uint   `json:"folder_id"`
	FileID   uint   `json:"file_id"`
	FilePath string `json:"file_path"`
}

// WarnFunc receives non-fatal walk diagnostics.
type WarnFunc func(format string, args ...any)

// Walk indexes all recognised media files under root. Directories are
// visited in sorted order; folder ids are assigned pre-order with the root
// counted first, and file ids increase monotonically across the whole run.
// A single unreadable entry is skipped with a warning; a root that does not
// resolve is an error.
func Walk(root string, warn WarnFunc) (map[string]FileItem, error) {
	if !util.DirectoryExists(root) {
		return nil, fmt.Errorf("scan root does not resolve: %s", root)
	}

	var folderID, fileID uint
	items := make(map[string]FileItem)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if warn != nil {
				warn("skipping unreadable entry %s: %v", path, err)
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if labelDirs[name] {
				return fs.SkipDir
			}
			if path != root && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			folderID++
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !util.IsMediaPath(path) {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			if warn != nil {
				warn("skipping %s: %v", path, err)
			}
			return nil
		}

		items[abs] = FileItem{
			FolderID: folderID,
			FileID:   fileID,
			FilePath: abs,
		}
		fileID++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return items, nil
}
