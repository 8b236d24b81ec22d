package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps objects in process memory. Used by tests and by local
// development when no storage backend is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func memKey(bucket, path string) string {
	return bucket + "/" + path
}

func (m *MemoryStore) Upload(ctx context.Context, bucket, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[memKey(bucket, path)] = cp
	return nil
}

func (m *MemoryStore) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[memKey(bucket, path)]
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", bucket, path)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("object %s/%s is empty", bucket, path)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}
