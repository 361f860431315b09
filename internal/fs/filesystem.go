// Package fs opens local image files for upload.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"wishlist-go/internal/upload"
)

// LocalFile is an open regular file with its content type sniffed from the
// bytes rather than the extension.
type LocalFile struct {
	Path     string
	Size     int64
	MimeType string

	file *os.File
}

// Open validates rawPath and opens it for reading. Only regular files are
// accepted.
func Open(rawPath string) (*LocalFile, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	switch {
	case info.IsDir():
		return nil, fmt.Errorf("cannot upload a directory: %s", absPath)
	case mode&os.ModeSymlink != 0:
		return nil, fmt.Errorf("symlinks not supported: %s", absPath)
	case !mode.IsRegular():
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	mtype, err := mimetype.DetectFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("detecting content type: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	return &LocalFile{
		Path:     absPath,
		Size:     info.Size(),
		MimeType: baseMimeType(mtype.String()),
		file:     f,
	}, nil
}

// UploadFile describes the file for the upload orchestrator. The body reads
// from the open file, so it can be used once.
func (f *LocalFile) UploadFile() upload.File {
	return upload.File{
		Name:     filepath.Base(f.Path),
		Size:     f.Size,
		MimeType: f.MimeType,
		Body:     f.file,
	}
}

func (f *LocalFile) Close() error {
	return f.file.Close()
}

// baseMimeType drops parameters such as "; charset=utf-8".
func baseMimeType(s string) string {
	base, _, _ := strings.Cut(s, ";")
	return strings.TrimSpace(base)
}
