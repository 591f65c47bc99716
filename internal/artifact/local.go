package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Dir keeps artifacts as files in one directory. Locations are file paths.
type Dir struct {
	root string
}

// NewDir creates root if needed.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", abs, err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the directory backing the store.
func (d *Dir) Root() string {
	return d.root
}

// Put writes r to root/base(name) through a temp file and rename so readers
// never observe a partial file. An existing file with the same name is replaced.
func (d *Dir) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	tmp, err := os.CreateTemp(d.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", base, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", base, err)
	}
	path := filepath.Join(d.root, base)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("persist %s: %w", base, err)
	}
	return path, nil
}

// Get reads the file at location.
func (d *Dir) Get(ctx context.Context, location string) ([]byte, error) {
	path, err := d.resolve(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return data, nil
}

// Remove deletes the file at location. Missing files are not an error.
func (d *Dir) Remove(ctx context.Context, location string) error {
	path, err := d.resolve(location)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", location, err)
	}
	return nil
}

// resolve rejects locations outside root; they arrive through the queue.
func (d *Dir) resolve(location string) (string, error) {
	path := location
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(d.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("location %q outside %s: %w", location, d.root, ErrNotFound)
	}
	return path, nil
}
