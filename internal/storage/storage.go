// Package storage persists serialized manifests to the local filesystem or to
// S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Object represents a stored file
type Object struct {
	Key          string            `json:"key"`
	Bucket       string            `json:"bucket"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type"`
	LastModified time.Time         `json:"last_modified"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// UploadOptions contains options for uploading files
type UploadOptions struct {
	ContentType  string
	Metadata     map[string]string
	CacheControl string
}

// Storage defines the operations needed to persist and read back manifests
type Storage interface {
	// Upload replaces the object at bucket/key with data
	Upload(ctx context.Context, bucket, key string, data io.Reader, size int64, opts *UploadOptions) (*Object, error)

	// Download opens the object at bucket/key
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, *Object, error)

	// Delete deletes an object
	Delete(ctx context.Context, bucket, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// Provider is the interface that storage providers must implement
type Provider interface {
	Storage
	Name() string
	Health(ctx context.Context) error
}
