package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemoryStore keeps objects in process memory.  It backs local development
// (STORAGE_DRIVER=memory) and tests.
type MemoryStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string]Object
}

type Object struct {
	Body        []byte
	ContentType string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: baseURL, objects: map[string]Object{}}
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return fmt.Errorf("%s: %w", key, ErrObjectExists)
	}
	m.objects[key] = Object{Body: bytes.Clone(b), ContentType: contentType}
	return nil
}

func (m *MemoryStore) PublicURL(key string) string { return PublicURL(m.BaseURL, key) }

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

// Keys lists stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
