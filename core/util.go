package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims the surrounding whitespace of s, lowering it too when lower is set.
func CleanString(s string, lower ...bool) string {
	if len(lower) == 0 || !lower[0] {
		return strings.TrimSpace(s)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// Getwd returns the module root (the closest directory holding go.mod) since tests run in their package dir.
// A deployed binary has no go.mod around, its working dir is returned.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	if root, found := moduleRoot(wd); found {
		return root
	}
	return wd
}

func moduleRoot(dir string) (string, bool) {
	for {
		if fi, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && fi.Mode().IsRegular() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
