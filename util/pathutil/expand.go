// Package pathutil expands user-supplied paths from config files and flags.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Expand replaces a leading ~ with the home directory and expands
// environment variables. The result is cleaned but not made absolute.
func Expand(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}
