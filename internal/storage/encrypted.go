package storage

import (
	"bytes"
	"fmt"
	"sync"

	"wishlist-go/internal/wishlist"
)

// EncryptedStorage seals every value before handing it to the wrapped
// backend. Writes need only the public key; reads fail with
// wishlist.ErrLocked until Unlock succeeds.
type EncryptedStorage struct {
	inner     wishlist.Storage
	encryptor wishlist.Encryptor

	mu     sync.RWMutex
	opened wishlist.DecryptionContext
}

func NewEncryptedStorage(inner wishlist.Storage, encryptor wishlist.Encryptor) *EncryptedStorage {
	return &EncryptedStorage{inner: inner, encryptor: encryptor}
}

// Unlock opens the private key for the rest of the session.
func (s *EncryptedStorage) Unlock(passphrase string) error {
	dc, err := s.encryptor.Unlock(passphrase)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.opened = dc
	s.mu.Unlock()
	return nil
}

// Locked reports whether reads are still refused.
func (s *EncryptedStorage) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opened == nil
}

func (s *EncryptedStorage) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	dc := s.opened
	s.mu.RUnlock()
	if dc == nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, wishlist.ErrLocked)
	}

	sealed, found, err := s.inner.Get(key)
	if err != nil || !found {
		return nil, found, err
	}

	var plain bytes.Buffer
	if err := dc.Decrypt(bytes.NewReader(sealed), &plain); err != nil {
		return nil, false, fmt.Errorf("decrypting %s: %w: %w", key, wishlist.ErrCorrupted, err)
	}
	return plain.Bytes(), true, nil
}

func (s *EncryptedStorage) Set(key string, value []byte) error {
	var sealed bytes.Buffer
	if err := s.encryptor.Encrypt(bytes.NewReader(value), &sealed); err != nil {
		return fmt.Errorf("encrypting %s: %w", key, err)
	}
	return s.inner.Set(key, sealed.Bytes())
}

func (s *EncryptedStorage) Delete(key string) error {
	return s.inner.Delete(key)
}

func (s *EncryptedStorage) Close() error {
	return s.inner.Close()
}

var _ wishlist.Storage = (*EncryptedStorage)(nil)
