package storage

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

// ErrNotFound is returned by Get when nothing is stored under the key.
var ErrNotFound = errors.New("object not found")

type Storage interface {
	// Put stores data with the given key and returns its location
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data stored with the given key
	Get(ctx context.Context, key string) ([]byte, error)
	// Location returns where data for the key is or would be stored
	Location(key string) string
}

// New creates the storage backend named by backend. The directory roots file storage and
// is appended to the S3 prefix.
func New(ctx context.Context, backend string, directory string, s S3Config) (Storage, error) {
	switch backend {
	case "", "file":
		return NewFileStorage(ctx, FileConfig{
			Directory: directory,
		})
	case "s3":
		s.Prefix = strings.Trim(path.Join(s.Prefix, filepath.ToSlash(directory)), "/.")
		return NewS3Storage(ctx, s)
	default:
		return nil, xerrors.Errorf("unknown storage backend: %s", backend)
	}
}
