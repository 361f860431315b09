package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"wishlist-go/internal/wishlist"
)

// FileSystemStore writes uploaded objects under a root directory. Credentials
// are file:// URLs pointing inside the root:
//
//	<root>/
//	  wishlist/
//	    <id><ext>    (uploaded image)
type FileSystemStore struct {
	name string
	root string
	ids  wishlist.IDGenerator
}

// NewFileSystemStore creates a store rooted at root, creating it if needed.
func NewFileSystemStore(name, root string, ids wishlist.IDGenerator) (*FileSystemStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving object store root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, keyPrefix), 0755); err != nil {
		return nil, fmt.Errorf("failed to create object store directory: %w", err)
	}
	return &FileSystemStore{name: name, root: abs, ids: ids}, nil
}

func (s *FileSystemStore) fileURL(key string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.root, filepath.FromSlash(key)))}
	return u.String()
}

func (s *FileSystemStore) IssueUploadCredential(ctx context.Context, req wishlist.UploadRequest) (*wishlist.UploadCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := newKey("", s.ids.New(), req.FileName)
	return &wishlist.UploadCredential{URL: s.fileURL(key), Key: key}, nil
}

// Transfer writes the body to the credentialed path using an atomic write
// (temp file + rename). A cancelled transfer leaves nothing behind.
func (s *FileSystemStore) Transfer(ctx context.Context, req wishlist.TransferRequest) error {
	destPath, err := s.resolve(req.Destination)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmp, newProgressReader(ctx, req))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if req.Size > 0 && written != req.Size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", req.Size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

// resolve maps a file:// destination to a path and rejects anything outside
// the root.
func (s *FileSystemStore) resolve(dest string) (string, error) {
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "file" {
		return "", fmt.Errorf("destination %q is not a file URL", dest)
	}
	p := filepath.Clean(filepath.FromSlash(u.Path))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("destination %q is outside object store root", dest)
	}
	return p, nil
}

func (s *FileSystemStore) PublicURL(key string) string {
	return s.fileURL(key)
}

// ValidateSetup verifies that the root is an accessible directory.
func (s *FileSystemStore) ValidateSetup(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("object store root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("object store root is not a directory: %s", s.root)
	}
	check, err := os.CreateTemp(s.root, ".write-check-*")
	if err != nil {
		return fmt.Errorf("object store root not writable: %w", err)
	}
	check.Close()
	return os.Remove(check.Name())
}

// Compile-time check that FileSystemStore implements wishlist.ObjectStore interface
var _ wishlist.ObjectStore = (*FileSystemStore)(nil)
