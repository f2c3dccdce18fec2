// Package fileutil locates refgate's configuration files.
package fileutil

import (
	"os"
	"path/filepath"
)

// SystemConfigDir holds the system-wide configuration
const SystemConfigDir = "/etc/refgate"

// SearchPathsOptional looks for a regular file in multiple locations.
// Returns the first path where one exists, or empty string if not found.
func SearchPathsOptional(paths []string) string {
	for _, path := range paths {
		if FileExists(path) {
			return path
		}
	}
	return ""
}

// DefaultConfigPaths returns standard config search paths for a given filename.
// Search order:
// 1. Current directory (./<filename>)
// 2. Config subdirectory (./config/<filename>)
// 3. User config directory (<os.UserConfigDir>/refgate/<filename>), when known
// 4. System-wide config (/etc/refgate/<filename>)
func DefaultConfigPaths(filename string) []string {
	paths := []string{
		filepath.Join(".", filename),
		filepath.Join(".", "config", filename),
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "refgate", filename))
	}
	return append(paths, filepath.Join(SystemConfigDir, filename))
}

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
