package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound signals a document row pointing at bytes that no longer
// exist; handlers translate it to 404.
var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Size        int64
	ContentType string
}

// ObjectStore holds document bytes and ledger exports. The MinIO client is
// the production implementation; tests swap in an in-memory one.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectName string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, objectName string) error
}
