// Package uploads stores uploaded document files on disk so they can be
// re-read during ingestion and removed when a document is deleted.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"purple-ai/internal/extract"
)

// ErrInvalidName is returned when a source name is empty or escapes the
// upload directory.
var ErrInvalidName = errors.New("invalid source name")

// Manager stores uploaded files under a single flat directory, keyed by
// their sanitized source name.
type Manager struct {
	dir string
}

// NewManager creates the upload directory if needed and returns a manager
// rooted there.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Manager{dir: dir}, nil
}

// SanitizeName normalizes an uploaded filename into a source name: the base
// name only, with path separators stripped. Returns ErrInvalidName for
// names that would escape the upload directory.
func SanitizeName(filename string) (string, error) {
	name := filepath.Base(filepath.ToSlash(filename))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	if !extract.Supported(name) {
		return "", fmt.Errorf("%w: %s", extract.ErrUnsupportedType, filepath.Ext(name))
	}
	return name, nil
}

// Save writes the uploaded content to disk under the sanitized source name,
// replacing any previous upload with the same name. It returns the stored
// path.
func (m *Manager) Save(name string, r io.Reader) (string, error) {
	path, err := m.Path(name)
	if err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes the stored file for a source name. Removing a file that
// does not exist is not an error.
func (m *Manager) Remove(name string) error {
	path, err := m.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file %s: %w", path, err)
	}
	return nil
}

// Path returns the on-disk path for a source name.
func (m *Manager) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(m.dir, name), nil
}
