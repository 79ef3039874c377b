//go:build linux

package media

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// fileShootTime approximates a video's capture time from filesystem
// timestamps. Cameras and copy tools disagree about which of mtime and
// ctime survives a transfer, so the earlier of the two is taken.
func fileShootTime(path string) *time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		info, err := os.Stat(path)
		if err != nil {
			return nil
		}
		t := info.ModTime()
		return &t
	}

	mtime := time.Unix(st.Mtim.Sec, st.Mtim.Nsec)
	ctime := time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	t := mtime
	if ctime.Before(t) {
		t = ctime
	}
	return &t
}
