package util

import (
	"os"
	"path/filepath"
	"strings"
)

// ImageExtensions is the set of supported still-image extensions.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// VideoExtensions is the set of supported video extensions.
var VideoExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mkv": true,
	".mov": true,
}

// IsImagePath reports whether the path has a supported image extension.
func IsImagePath(path string) bool {
	return ImageExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsVideoPath reports whether the path has a supported video extension.
func IsVideoPath(path string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsMediaPath reports whether the path has any supported media extension.
func IsMediaPath(path string) bool {
	return IsImagePath(path) || IsVideoPath(path)
}

// EnsureDirectory creates a directory if it doesn't exist.
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DirectoryExists checks if a directory exists.
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
