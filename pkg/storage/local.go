package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var _ Storage = (*Local)(nil)

// Local stores objects as files in a single directory.
type Local struct {
	dir string
}

// NewLocal creates dir if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create report directory", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	return &Local{dir: abs}, nil
}

func (l *Local) Kind() string {
	return KindLocal
}

func (l *Local) Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	p := filepath.Join(l.dir, key)

	// Write then rename so a reader never sees a partial document.
	tmp, err := os.CreateTemp(l.dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return nil, fmt.Errorf("%w: failed to write document", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to close document", err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		return nil, fmt.Errorf("%w: failed to store document", err)
	}

	return &Object{
		Key:  key,
		Path: p,
	}, nil
}

func (l *Local) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(l.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read document", err)
	}

	return b, nil
}

// Delete is a no-op for missing files.
func (l *Local) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(l.dir, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: failed to delete document", err)
	}

	return nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}

	_, err := os.Stat(filepath.Join(l.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: failed to stat document", err)
	}

	return true, nil
}
