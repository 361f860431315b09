// Package storage provides the key-value backends drafts are persisted to.
package storage

import (
	"fmt"
	"sync"

	"wishlist-go/internal/wishlist"
)

// DefaultMaxSize is the default quota for a storage backend (5MB), the
// budget a browser gives a single origin.
const DefaultMaxSize int64 = 5 * 1024 * 1024

// MemoryStorage keeps records in memory. Useful for tests and for sessions
// that should not outlive the process.
// This implementation is safe for concurrent use.
type MemoryStorage struct {
	maxSize int64

	mu   sync.RWMutex
	data map[string][]byte
	used int64
}

// NewMemoryStorage creates an empty store. Keys and values together may not
// exceed maxSize bytes; maxSize <= 0 means DefaultMaxSize.
func NewMemoryStorage(maxSize int64) *MemoryStorage {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MemoryStorage{
		maxSize: maxSize,
		data:    make(map[string][]byte),
	}
}

func (m *MemoryStorage) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStorage) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used
	if old, ok := m.data[key]; ok {
		used -= entrySize(key, old)
	}
	used += entrySize(key, value)
	if used > m.maxSize {
		return fmt.Errorf("setting %s: %d of %d bytes: %w", key, used, m.maxSize, wishlist.ErrQuotaExceeded)
	}

	m.data[key] = append([]byte(nil), value...)
	m.used = used
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.used -= entrySize(key, old)
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryStorage) Close() error { return nil }

// Used returns the bytes currently counted against the quota.
func (m *MemoryStorage) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

// Compile-time check that MemoryStorage implements wishlist.Storage interface
var _ wishlist.Storage = (*MemoryStorage)(nil)
