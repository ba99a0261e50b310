package projects

import (
	"strings"
)

// NormalizeClientPath resolves a user supplied project path. A leading `~`
// is replaced by `tilde`, the home directory reported by the sync tool.
// Relative paths are resolved against `rootDir`.
func NormalizeClientPath(path, tilde, rootDir string) string {
	path = strings.TrimSpace(path)
	switch {
	case strings.HasPrefix(path, "~"):
		return tilde + path[1:]
	case isAbs(path):
		return path
	default:
		return rootDir + "/" + path
	}
}

// isAbs accepts both Unix paths and Windows drive paths since the path may
// be interpreted by a daemon running on another OS.
func isAbs(path string) bool {
	if strings.HasPrefix(path, "/") {
		return true
	}
	return len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/')
}
