// Package snapshot backs up and restores a working tree so a repair
// attempt that makes things worse can be reverted.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	cp "github.com/otiai10/copy"
)

// ExcludedDirs are never copied into or restored from a backup: version
// control metadata, third-party package directories, framework build
// output, and the tool's own artifact directory.
var ExcludedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"coverage":     true,
	".quick-gate":  true,
}

// Manager captures and restores content snapshots of a working tree.
type Manager struct {
	Cwd string
}

// NewManager returns a Manager rooted at cwd.
func NewManager(cwd string) *Manager {
	return &Manager{Cwd: cwd}
}

func skipExcluded(info os.FileInfo, src, dest string) (bool, error) {
	if info.IsDir() && ExcludedDirs[info.Name()] {
		return true, nil
	}
	return false, nil
}

// Capture mirrors the working tree into backupDir, excluding the
// well-known non-source directories.
func (m *Manager) Capture(backupDir string) error {
	if err := os.MkdirAll(filepath.Dir(backupDir), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(backupDir), err)
	}
	opts := cp.Options{Skip: skipExcluded}
	if err := cp.Copy(m.Cwd, backupDir, opts); err != nil {
		return fmt.Errorf("snapshot %s -> %s: %w", m.Cwd, backupDir, err)
	}
	return nil
}

// Restore overwrites the working tree's content from backupDir, leaving
// the excluded directories in the working tree untouched.
func (m *Manager) Restore(backupDir string) error {
	entries, err := os.ReadDir(m.Cwd)
	if err != nil {
		return fmt.Errorf("read working tree %s: %w", m.Cwd, err)
	}
	for _, e := range entries {
		if ExcludedDirs[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.Cwd, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}

	opts := cp.Options{Skip: skipExcluded}
	if err := cp.Copy(backupDir, m.Cwd, opts); err != nil {
		return fmt.Errorf("restore %s -> %s: %w", backupDir, m.Cwd, err)
	}
	return nil
}

// Remove deletes a backup directory once it's no longer needed.
func (m *Manager) Remove(backupDir string) error {
	if err := os.RemoveAll(backupDir); err != nil {
		return fmt.Errorf("remove backup %s: %w", backupDir, err)
	}
	return nil
}
