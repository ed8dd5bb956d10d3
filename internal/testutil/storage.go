// Package testutil provides shared test doubles.
package testutil

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/fluxbase-eu/assetmanifest/internal/storage"
)

// MemoryStorage is an in-memory storage.Provider. Objects are kept per
// bucket, so it stands in for S3 in tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]map[string]*memoryObject // bucket -> key -> object
	uploads int

	// OnUpload runs before an upload is stored. A non-nil error fails it.
	OnUpload func(ctx context.Context, bucket, key string) error
}

type memoryObject struct {
	data []byte
	info storage.Object
}

// NewMemoryStorage creates an empty in-memory provider
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]map[string]*memoryObject)}
}

// Name returns the provider name
func (m *MemoryStorage) Name() string {
	return "memory"
}

// Health always succeeds
func (m *MemoryStorage) Health(ctx context.Context) error {
	return nil
}

// Upload stores data under bucket/key
func (m *MemoryStorage) Upload(ctx context.Context, bucket, key string, data io.Reader, size int64, opts *storage.UploadOptions) (*storage.Object, error) {
	if m.OnUpload != nil {
		if err := m.OnUpload(ctx, bucket, key); err != nil {
			return nil, err
		}
	}

	content, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	info := storage.Object{
		Key:          key,
		Bucket:       bucket,
		Size:         int64(len(content)),
		LastModified: time.Now(),
	}
	if opts != nil {
		info.ContentType = opts.ContentType
		info.Metadata = opts.Metadata
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[bucket]; !ok {
		m.objects[bucket] = make(map[string]*memoryObject)
	}
	m.objects[bucket][key] = &memoryObject{data: content, info: info}
	m.uploads++

	obj := info
	return &obj, nil
}

// Download returns a reader over a copy of the stored object
func (m *MemoryStorage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, *storage.Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[bucket][key]
	if !ok {
		return nil, nil, storage.ErrNotFound
	}
	info := obj.info
	return io.NopCloser(bytes.NewReader(append([]byte(nil), obj.data...))), &info, nil
}

// Delete removes an object. Missing objects are not an error.
func (m *MemoryStorage) Delete(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects[bucket], key)
	return nil
}

// Exists reports whether bucket/key is stored
func (m *MemoryStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[bucket][key]
	return ok, nil
}

// Get returns the stored bytes and object info of bucket/key
func (m *MemoryStorage) Get(bucket, key string) ([]byte, *storage.Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[bucket][key]
	if !ok {
		return nil, nil, false
	}
	info := obj.info
	return append([]byte(nil), obj.data...), &info, true
}

// Uploads returns the number of successful uploads
func (m *MemoryStorage) Uploads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploads
}
