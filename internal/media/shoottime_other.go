//go:build !linux

package media

import (
	"os"
	"time"
)

// fileShootTime approximates a video's capture time from the filesystem
// modify time on platforms without a portable ctime.
func fileShootTime(path string) *time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	t := info.ModTime()
	return &t
}
