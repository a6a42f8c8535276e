package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const sqliteFileName = "cardboard.sqlite"

// Store is a local page store rooted at Dir. It implements persist.Backend.
type Store struct {
	Dir string
}

func DiscoverDir(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, ".cardboard")
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DefaultDir returns the nearest .cardboard directory above the working
// directory, or ./.cardboard when none exists.
func DefaultDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if found, ok := DiscoverDir(cwd); ok {
		return found, nil
	}
	return filepath.Join(cwd, ".cardboard"), nil
}

func (s Store) Ensure() error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("store: missing dir")
	}
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) SQLitePath() string {
	return filepath.Join(s.Dir, sqliteFileName)
}

func (s Store) spoolDir() string {
	return filepath.Join(s.Dir, "spool")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
