package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

var ErrNotFound = errors.New("object not found")

// ObjectStore keeps uploaded file contents. Object ids are chosen by the caller.
type ObjectStore interface {
	Put(ctx context.Context, objectID, filename, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, objectID string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectID string) error
}

// MemoryStore is an ObjectStore backed by a map, for tests and local runs
// without MongoDB.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, objectID, _, _ string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.objects[objectID] = data
	m.mu.Unlock()
	return int64(len(data)), nil
}

func (m *MemoryStore) Open(_ context.Context, objectID string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.objects[objectID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Delete(_ context.Context, objectID string) error {
	m.mu.Lock()
	delete(m.objects, objectID)
	m.mu.Unlock()
	return nil
}
