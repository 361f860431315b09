package testutil

import (
	"context"
	"io"
	"sync"

	"wishlist-go/internal/wishlist"
)

// FakeObjectStore is a wishlist.ObjectStore whose behaviour is supplied by the
// test. With no hooks set it issues "memory://fake/<key>" credentials with keys
// from IDs and accepts every transfer. Safe for concurrent use.
type FakeObjectStore struct {
	IssueFunc    func(ctx context.Context, req wishlist.UploadRequest) (*wishlist.UploadCredential, error)
	TransferFunc func(ctx context.Context, req wishlist.TransferRequest) error
	IDs          wishlist.IDGenerator

	mu        sync.Mutex
	issued    []wishlist.UploadRequest
	transfers []wishlist.TransferRequest
}

func NewFakeObjectStore() *FakeObjectStore {
	return &FakeObjectStore{IDs: NewStubIDGenerator()}
}

func (f *FakeObjectStore) IssueUploadCredential(ctx context.Context, req wishlist.UploadRequest) (*wishlist.UploadCredential, error) {
	f.mu.Lock()
	f.issued = append(f.issued, req)
	f.mu.Unlock()

	if f.IssueFunc != nil {
		return f.IssueFunc(ctx, req)
	}
	key := "uploads/" + f.IDs.New() + "-" + req.FileName
	return &wishlist.UploadCredential{URL: "memory://fake/" + key, Key: key}, nil
}

func (f *FakeObjectStore) Transfer(ctx context.Context, req wishlist.TransferRequest) error {
	f.mu.Lock()
	f.transfers = append(f.transfers, req)
	f.mu.Unlock()

	if f.TransferFunc != nil {
		return f.TransferFunc(ctx, req)
	}
	if _, err := io.Copy(io.Discard, req.Body); err != nil {
		return err
	}
	if req.OnProgress != nil {
		req.OnProgress(wishlist.Progress{Percent: 100, Loaded: req.Size, Total: req.Size})
	}
	return nil
}

func (f *FakeObjectStore) PublicURL(key string) string {
	return "https://fake-bucket.s3.amazonaws.com/" + key
}

func (f *FakeObjectStore) ValidateSetup(context.Context) error { return nil }

// IssueCalls returns the credential requests received so far.
func (f *FakeObjectStore) IssueCalls() []wishlist.UploadRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wishlist.UploadRequest(nil), f.issued...)
}

// TransferCalls returns the transfer requests received so far.
func (f *FakeObjectStore) TransferCalls() []wishlist.TransferRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wishlist.TransferRequest(nil), f.transfers...)
}

var _ wishlist.ObjectStore = (*FakeObjectStore)(nil)
