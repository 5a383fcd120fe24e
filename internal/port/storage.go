package port

import (
	"context"
	"io"
	"time"
)

// PutInput encapsulates the parameters needed to store an object.
type PutInput struct {
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
}

// PutOutput contains the result of a successful put.
type PutOutput struct {
	Location string
	ETag     string
}

// BlobStore abstracts durable, URI-addressable object storage.
type BlobStore interface {
	Put(ctx context.Context, input PutInput) (*PutOutput, error)
	Get(ctx context.Context, location string) ([]byte, error)
	PresignedURL(ctx context.Context, location string, expiry time.Duration) (string, error)
	Ping(ctx context.Context) error
}
