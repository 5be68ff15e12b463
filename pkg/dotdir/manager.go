// Package dotdir manages the .tutor/ and ~/.tutor directories.
//
// The session state remembers which thread and learner the interactive chat
// was last attached to so "tutor chat" can resume it. The state is persisted
// as a JSON file in the resolved .tutor/ directory.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the tutor directory.
	dirName = ".tutor"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .tutor/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.tutor/ dir
//  3. Home ~/.tutor/ dir
//
// If none of these resolve, an empty string is returned and callers fall
// back to defaults.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating tutor directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if dirExists(filepath.Join(cwd, dirName)) {
		return filepath.Join(cwd, dirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	if dirExists(filepath.Join(home, dirName)) {
		return filepath.Join(home, dirName), nil
	}

	return "", nil
}

// HomeTarget returns ~/.tutor/, creating it when needed. Used by commands
// that must persist state even when no directory has been initialized yet.
func (m *Manager) HomeTarget() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating tutor directory %s: %w", dir, err)
	}

	return dir, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
