package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"wishlist-go/internal/wishlist"
)

// FileSystemStorage stores one file per key under a directory. Writes go
// through a temporary file and a rename, so a record is either the old or the
// new value, never half written.
//
// Directory structure:
//
//	<dir>/
//	  <escaped key>    (record bytes)
type FileSystemStorage struct {
	dir     string
	maxSize int64

	// mu serialises writers so the quota check and the write are atomic.
	mu sync.Mutex
}

// NewFileSystemStorage creates the directory if needed.
func NewFileSystemStorage(dir string, maxSize int64) (*FileSystemStorage, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileSystemStorage{dir: dir, maxSize: maxSize}, nil
}

func (s *FileSystemStorage) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key))
}

func (s *FileSystemStorage) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, true, nil
}

func (s *FileSystemStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, err := s.usedExcluding(key)
	if err != nil {
		return err
	}
	if used+int64(len(value)) > s.maxSize {
		return fmt.Errorf("setting %s: %w", key, wishlist.ErrQuotaExceeded)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return classifyWriteErr(key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return classifyWriteErr(key, err)
	}
	if err := tmp.Close(); err != nil {
		return classifyWriteErr(key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

func (s *FileSystemStorage) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (s *FileSystemStorage) Close() error { return nil }

// usedExcluding sums record sizes, skipping key and temporary files.
func (s *FileSystemStorage) usedExcluding(key string) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("listing storage directory: %w", err)
	}
	skip := url.PathEscape(key)

	var total int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == skip || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func classifyWriteErr(key string, err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("writing %s: %w: %w", key, wishlist.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("writing %s: %w", key, err)
}

// Compile-time check that FileSystemStorage implements wishlist.Storage interface
var _ wishlist.Storage = (*FileSystemStorage)(nil)
