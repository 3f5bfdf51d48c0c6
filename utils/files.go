package utils

import (
	"path/filepath"
	"strings"
)

// StripGitPrefix reduces a repo-qualified file name to its final path segment.
func StripGitPrefix(name string) string {
	arr := strings.SplitAfter(name, "/")
	return arr[len(arr)-1]
}

// FriendlyFileName shows an absolute path where one exists, for readable log output.
func FriendlyFileName(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// EnvironmentFromFileName maps a value file's base name to its environment, e.g.
// "production.yaml" -> "production". The suffix must already be known (via IsReadable).
func EnvironmentFromFileName(name string, suffix string) string {
	return strings.TrimSuffix(filepath.Base(name), suffix)
}
