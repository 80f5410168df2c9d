package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/prior-it/clientbook/core"
)

// FileSlot stores the customer list in a single JSON file.
// Files are replaced atomically, readers will never observe a partially written file.
type FileSlot struct {
	path string
}

var _ Slot = &FileSlot{}

func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: filepath.Clean(path)}
}

// Path returns the location of the file that backs this slot.
func (f *FileSlot) Path() string {
	return f.path
}

func (f *FileSlot) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Join(core.ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", f.path, err)
	}
	return data, nil
}

func (f *FileSlot) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("cannot create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+"-*")
	if err != nil {
		return fmt.Errorf("cannot create temporary file: %w", err)
	}
	// Removing fails harmlessly once the file has been renamed
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cannot write %q: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cannot sync %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot close %q: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("cannot replace %q: %w", f.path, err)
	}
	return nil
}
