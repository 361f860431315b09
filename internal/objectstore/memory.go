package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"wishlist-go/internal/wishlist"
)

// MemoryStore keeps uploaded objects in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	name string
	ids  wishlist.IDGenerator

	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data     []byte
	mimeType string
}

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore(name string, ids wishlist.IDGenerator) *MemoryStore {
	return &MemoryStore{
		name:    name,
		ids:     ids,
		objects: make(map[string]memoryObject),
	}
}

func (m *MemoryStore) urlPrefix() string {
	return "memory://" + m.name + "/"
}

func (m *MemoryStore) IssueUploadCredential(ctx context.Context, req wishlist.UploadRequest) (*wishlist.UploadCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := newKey("", m.ids.New(), req.FileName)
	return &wishlist.UploadCredential{URL: m.urlPrefix() + key, Key: key}, nil
}

func (m *MemoryStore) Transfer(ctx context.Context, req wishlist.TransferRequest) error {
	key, ok := strings.CutPrefix(req.Destination, m.urlPrefix())
	if !ok || key == "" {
		return fmt.Errorf("destination %q does not belong to memory store %q", req.Destination, m.name)
	}

	data, err := io.ReadAll(newProgressReader(ctx, req))
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if req.Size > 0 && int64(len(data)) != req.Size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", req.Size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, mimeType: req.MimeType}
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return m.urlPrefix() + key
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(context.Context) error {
	return nil
}

// Object returns a stored object's bytes and MIME type.
func (m *MemoryStore) Object(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, obj.mimeType, ok
}

// Compile-time check that MemoryStore implements wishlist.ObjectStore interface
var _ wishlist.ObjectStore = (*MemoryStore)(nil)
