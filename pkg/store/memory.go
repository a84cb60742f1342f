package store

import (
	"bytes"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store implementation. It is safe for
// concurrent use and is primarily intended for tests and ephemeral
// capture setups.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Exists reports whether an artifact exists at path.
func (m *MemoryStore) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[normalize(path)]
	return ok
}

// Put creates or overwrites the artifact at path.
func (m *MemoryStore) Put(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[normalize(path)] = append([]byte(nil), data...)
	return nil
}

// Append appends to the artifact at path, creating it if absent. The whole
// write happens under the store lock, so concurrent appends never
// interleave.
func (m *MemoryStore) Append(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalize(path)
	m.blobs[key] = append(m.blobs[key], data...)
	return nil
}

// ReadAll returns the contents of the artifact at path.
func (m *MemoryStore) ReadAll(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[normalize(path)]
	if !ok {
		return nil, &NotFoundError{Path: path}
	}
	return append([]byte(nil), data...), nil
}

// Open returns a reader over the artifact at path.
func (m *MemoryStore) Open(path string) (io.ReadCloser, error) {
	data, err := m.ReadAll(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ListFiles returns artifacts directly inside dir, sorted.
func (m *MemoryStore) ListFiles(dir string) ([]string, error) {
	return m.list(dir, false), nil
}

// ListAllFiles returns all artifacts under dir, recursively, sorted.
func (m *MemoryStore) ListAllFiles(dir string) ([]string, error) {
	return m.list(dir, true), nil
}

func (m *MemoryStore) list(dir string, recursive bool) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := normalize(dir)
	if prefix != "" {
		prefix += "/"
	}

	var out []string
	for key := range m.blobs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if !recursive && strings.Contains(rest, "/") {
			continue
		}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Delete removes the artifact at path and reports whether it existed.
func (m *MemoryStore) Delete(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalize(path)
	_, ok := m.blobs[key]
	delete(m.blobs, key)
	return ok
}

// normalize strips leading and trailing slashes so lookups are consistent
// regardless of how callers spell the path.
func normalize(path string) string {
	return strings.Trim(path, "/")
}

// NotFoundError reports a missing artifact.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "store: artifact not found: " + e.Path
}

var _ Store = (*MemoryStore)(nil)
