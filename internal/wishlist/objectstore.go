package wishlist

import (
	"context"
	"io"
)

// UploadRequest describes the file a write credential is requested for.
type UploadRequest struct {
	FileName string
	MimeType string
}

// UploadCredential is a short-lived write target for a single object.
// URL is where the transfer must send the bytes; Key identifies the object
// once stored.
type UploadCredential struct {
	URL string
	Key string
}

// Progress reports transfer progress. Percent is 0-100.
type Progress struct {
	Percent int
	Loaded  int64
	Total   int64
}

// TransferRequest carries everything needed to move one file to a credentialed
// destination. OnProgress may be nil.
type TransferRequest struct {
	Destination string
	Body        io.Reader
	Size        int64
	MimeType    string
	OnProgress  func(Progress)
}

// ObjectStore issues write credentials and performs transfers for uploaded
// images. Transfers must honour ctx cancellation promptly.
type ObjectStore interface {
	// IssueUploadCredential returns a write target and storage key for a file.
	IssueUploadCredential(ctx context.Context, req UploadRequest) (*UploadCredential, error)

	// Transfer sends the request body to the credentialed destination.
	Transfer(ctx context.Context, req TransferRequest) error

	// PublicURL returns the public identifier for a stored key.
	PublicURL(key string) string

	// ValidateSetup verifies that the store is reachable and configured.
	ValidateSetup(ctx context.Context) error
}
