// Package upload drives a single image from local selection to a stored
// object: validation, credential, transfer and completion.
package upload

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// MaxFileSize is the default upload size limit.
const MaxFileSize int64 = 10 * 1024 * 1024

// DefaultAllowedMimeTypes are the image types accepted unless configured
// otherwise.
var DefaultAllowedMimeTypes = []string{"image/jpeg", "image/png", "image/webp"}

var mimeLabels = map[string]string{
	"image/jpeg": "JPEG",
	"image/png":  "PNG",
	"image/webp": "WebP",
	"image/gif":  "GIF",
}

// File is a local file selected for upload. Body is read once, during the
// transfer.
type File struct {
	Name     string
	Size     int64
	MimeType string
	Body     io.Reader
}

// ValidationError is returned when a file is rejected before any network
// activity. Message is suitable for display.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validator checks files against a size limit and a MIME allow-list.
type Validator struct {
	maxSize int64
	allowed []string
}

// NewValidator creates a validator. Zero or empty arguments select the
// defaults.
func NewValidator(maxSize int64, allowedMimeTypes []string) *Validator {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	if len(allowedMimeTypes) == 0 {
		allowedMimeTypes = DefaultAllowedMimeTypes
	}
	return &Validator{maxSize: maxSize, allowed: slices.Clone(allowedMimeTypes)}
}

// Validate returns a *ValidationError if f may not be uploaded. The size check
// runs first. Empty files are accepted.
func (v *Validator) Validate(f File) error {
	if f.Size > v.maxSize {
		return &ValidationError{Message: fmt.Sprintf("File size exceeds maximum limit of %s", formatSize(v.maxSize))}
	}
	if !slices.Contains(v.allowed, f.MimeType) {
		return &ValidationError{Message: fmt.Sprintf("Only %s images are allowed", v.allowedList())}
	}
	return nil
}

// MaxSize returns the configured size limit in bytes.
func (v *Validator) MaxSize() int64 { return v.maxSize }

func (v *Validator) allowedList() string {
	names := make([]string, 0, len(v.allowed))
	for _, m := range v.allowed {
		if label, ok := mimeLabels[m]; ok {
			names = append(names, label)
		} else {
			names = append(names, m)
		}
	}

	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

func formatSize(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/mb)
}
