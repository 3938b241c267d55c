package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rusq/fsadapter"
)

// Manager owns the output directory that exports and archives land in
type Manager struct {
	outputDir string
}

// NewManager creates the output directory if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir}, nil
}

func (m *Manager) Dir() string {
	return m.outputDir
}

// Path joins name onto the output directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// FS exposes the output directory as an fsadapter filesystem
func (m *Manager) FS() fsadapter.FS {
	return fsadapter.NewDirectory(m.outputDir)
}

// Exists reports whether name is present in the output directory
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// CreateArchive opens a new zip archive in the output directory. The
// caller must Close it to flush the central directory.
func (m *Manager) CreateArchive(name string) (*fsadapter.ZIP, string, error) {
	path := m.Path(name)
	zf, err := fsadapter.NewZipFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create archive: %w", err)
	}
	return zf, path, nil
}

// WriteFileAtomic writes data to path through a temporary file and a
// rename, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := path + ".tmp"
	out, err := os.OpenFile(tempFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = out.Write(data)
	if err == nil {
		err = out.Sync()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// atomicFS is an fsadapter.FS whose WriteFile never leaves partial files
type atomicFS struct {
	fsadapter.FS
	dir string
}

// AtomicFS returns the output directory with atomic WriteFile semantics
func (m *Manager) AtomicFS() fsadapter.FS {
	return atomicFS{FS: m.FS(), dir: m.outputDir}
}

func (a atomicFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return WriteFileAtomic(filepath.Join(a.dir, name), data, perm)
}
