// Package storage keeps rendered report documents. The local driver writes
// to a directory; the s3 driver writes to a bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

const (
	KindLocal = "local"
	KindS3    = "s3"
)

var ErrInvalidKey = errors.New("storage: invalid key")

// Object describes a stored document.
type Object struct {
	// Key addresses the object in Get, Delete and Exists.
	Key string
	// Path is where the object lives: a file path or an s3:// URI.
	Path string
	// URL is a public link, when the backend has one.
	URL string
}

type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Kind() string
}

// validKey accepts flat file names only.
func validKey(key string) error {
	if key == "" || key != path.Base(key) || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %w: %q", apperr.ErrValidation, ErrInvalidKey, key)
	}

	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: object %s", apperr.ErrNotFound, key)
}
