package objectstore

import (
	"context"
	"fmt"

	"wishlist-go/internal/config"
	"wishlist-go/internal/wishlist"
)

// NewObjectStoreFromConfig creates an ObjectStore implementation based on the
// object store config type.
func NewObjectStoreFromConfig(ctx context.Context, cfg config.ObjectStoreConfig, ids wishlist.IDGenerator) (wishlist.ObjectStore, error) {
	if ids == nil {
		ids = wishlist.UUIDGenerator{}
	}
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(cfg.Name, ids), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem object store requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.Name, cfg.FSRoot, ids)
	case "s3":
		return NewS3Store(ctx, cfg, ids)
	default:
		return nil, fmt.Errorf("unknown object store type: %s", cfg.Type)
	}
}
