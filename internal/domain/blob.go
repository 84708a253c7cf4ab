package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes one archived object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads report payloads to object storage. PutMultipart is for
// payloads past the single-PUT threshold.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader lists and retrieves archived reports for the status API.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// Archiver exports copy-trade activity to cold storage. Returns the number of
// trades written.
type Archiver interface {
	ArchiveCopyTrades(ctx context.Context, since time.Time) (int64, error)
}
