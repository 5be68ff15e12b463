// Package sqlitepath locates the tutor SQLite database.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/tutor/pkg/config"
	"github.com/papercomputeco/tutor/pkg/dotdir"
)

// ResolveSQLitePath returns the database file for path. Absolute paths and
// relative paths that already exist are kept. Otherwise the first existing
// candidate wins, and a fresh database is placed in the .tutor/ directory.
func ResolveSQLitePath(path, configDir string) (string, error) {
	if path == "" {
		path = config.NewDefaultConfig().Storage.SQLitePath
	}
	if filepath.IsAbs(path) || exists(path) {
		return path, nil
	}

	mgr := dotdir.NewManager()
	for _, candidate := range sqliteCandidates(path) {
		if exists(candidate) {
			return candidate, nil
		}
	}

	dir, err := mgr.Target(configDir)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir, err = mgr.HomeTarget()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, path), nil
}

// Apply rewrites cfg's SQLite path in place when the SQLite driver is
// selected.
func Apply(cfg *config.Config, configDir string) error {
	if cfg.Storage.Driver != "" && cfg.Storage.Driver != "sqlite" {
		return nil
	}
	path, err := ResolveSQLitePath(cfg.Storage.SQLitePath, configDir)
	if err != nil {
		return err
	}
	cfg.Storage.SQLitePath = path
	return nil
}

func sqliteCandidates(name string) []string {
	candidates := []string{
		filepath.Join(".tutor", name),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".tutor", name))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append([]string{filepath.Join(xdgHome, "tutor", name)}, candidates...)
	}

	return candidates
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
