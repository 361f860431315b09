package storage

import (
	"fmt"
	"path/filepath"

	"wishlist-go/internal/config"
	"wishlist-go/internal/database"
	"wishlist-go/internal/wishlist"
)

// NewStorageFromConfig creates a Storage implementation based on the config
// type. When cfg.Encrypted is set the backend is wrapped in an
// EncryptedStorage sealed with encryptor; the caller unlocks it for reads.
func NewStorageFromConfig(cfg config.StorageConfig, encryptor wishlist.Encryptor, clock wishlist.Clock) (wishlist.Storage, error) {
	backend, err := newBackend(cfg, clock)
	if err != nil {
		return nil, err
	}
	if !cfg.Encrypted {
		return backend, nil
	}
	if encryptor == nil {
		backend.Close()
		return nil, fmt.Errorf("encrypted storage requires an encryptor")
	}
	return NewEncryptedStorage(backend, encryptor), nil
}

func newBackend(cfg config.StorageConfig, clock wishlist.Clock) (wishlist.Storage, error) {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	switch cfg.Type {
	case "memory":
		return NewMemoryStorage(maxSize), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem storage requires dir to be set")
		}
		return NewFileSystemStorage(cfg.Dir, maxSize)
	case "sqlite":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("sqlite storage requires dir to be set")
		}
		return database.NewSQLiteStorage(filepath.Join(cfg.Dir, "drafts.db"), maxSize, clock)
	case "badger":
		if cfg.Dir == "" {
			return NewInMemoryBadgerStorage(maxSize)
		}
		return NewBadgerStorage(cfg.Dir, maxSize)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
