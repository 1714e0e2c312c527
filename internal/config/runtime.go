package config

import (
	"os"
	"path/filepath"
)

func GetRuntimePath() string {
	return ResolveRuntimePath(os.Getenv("DOCQA_RUNTIME_PATH"))
}

// ResolveRuntimePath anchors a relative runtime path in the user's home directory.
func ResolveRuntimePath(path string) string {
	if path == "" {
		path = ".docqa"
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}
