package utils

import (
	"os"
	"os/user"
	"path"
)

func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// FindProjectRoot walks up from startDir looking for go.mod
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if _, err := os.Stat(path.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parentDir := path.Dir(dir)
		if parentDir == dir {
			// Reached root without go.mod
			return startDir
		}
		dir = parentDir
	}
}

// EnsureDir creates dir (and parents) with owner-only permissions
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0700)
}
