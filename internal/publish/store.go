// Package publish writes forecast documents to the local output directory and
// to the remote content store. Local persistence always happens first, so a
// failed remote publish still leaves a usable artifact on disk.
package publish

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store persists documents under a local directory with atomic writes.
type Store struct {
	dir             string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
}

// NewStore creates a local document store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:             dir,
		filePermissions: 0o644,
		dirPermissions:  0o755,
	}
}

// Save writes the document atomically: the content lands in a temp file that
// is renamed over the destination, so a crash mid-write never leaves a
// truncated document for the dashboard to read.
func (s *Store) Save(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(s.dir, name)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, s.filePermissions); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath) // Clean up temp file on rename failure
		return fmt.Errorf("failed to rename document: %w", err)
	}
	return nil
}

// Path returns the on-disk location of a saved document.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}
