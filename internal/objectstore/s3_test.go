package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"wishlist-go/internal/config"
	"wishlist-go/internal/testutil"
	"wishlist-go/internal/wishlist"
)

// fakeS3 records the requests an S3 client sends to it.
type fakeS3 struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
}

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		method:      r.Method,
		path:        r.URL.Path,
		contentType: r.Header.Get("Content-Type"),
		body:        string(body),
	})
	status := f.status
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (f *fakeS3) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestS3Store(t *testing.T, srv *httptest.Server, presign bool) *S3Store {
	t.Helper()
	s, err := NewS3Store(context.Background(), config.ObjectStoreConfig{
		Type:              "s3",
		S3Bucket:          "wishlist-images",
		S3Region:          "us-east-1",
		S3Endpoint:        srv.URL,
		S3PathStyle:       true,
		S3AccessKeyID:     "test-key",
		S3SecretAccessKey: "test-secret",
		S3Presign:         presign,
	}, testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}
	return s
}

func TestS3Store_PresignedUpload(t *testing.T) {
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	s := newTestS3Store(t, srv, true)
	ctx := context.Background()

	cred, err := s.IssueUploadCredential(ctx, wishlist.UploadRequest{FileName: "falcon.png", MimeType: "image/png"})
	if err != nil {
		t.Fatalf("IssueUploadCredential() error = %v", err)
	}
	if cred.Key != "wishlist/id-1.png" {
		t.Errorf("Key = %q, want %q", cred.Key, "wishlist/id-1.png")
	}
	if !strings.HasPrefix(cred.URL, srv.URL+"/wishlist-images/wishlist/id-1.png?") {
		t.Errorf("URL = %q, want presigned URL on test server", cred.URL)
	}
	if !strings.Contains(cred.URL, "X-Amz-Signature=") {
		t.Errorf("URL = %q, missing signature", cred.URL)
	}

	var percents []int
	err = s.Transfer(ctx, wishlist.TransferRequest{
		Destination: cred.URL,
		Body:        strings.NewReader("png-bytes"),
		Size:        9,
		MimeType:    "image/png",
		OnProgress:  func(p wishlist.Progress) { percents = append(percents, p.Percent) },
	})
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}

	got := fake.last()
	if got.method != http.MethodPut {
		t.Errorf("method = %s, want PUT", got.method)
	}
	if got.path != "/wishlist-images/wishlist/id-1.png" {
		t.Errorf("path = %q", got.path)
	}
	if got.contentType != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", got.contentType)
	}
	if got.body != "png-bytes" {
		t.Errorf("body = %q", got.body)
	}
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Errorf("progress = %v, want to end at 100", percents)
	}
}

func TestS3Store_PresignedUploadRejected(t *testing.T) {
	fake := &fakeS3{status: http.StatusForbidden}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	s := newTestS3Store(t, srv, true)
	ctx := context.Background()

	cred, err := s.IssueUploadCredential(ctx, wishlist.UploadRequest{FileName: "falcon.png"})
	if err != nil {
		t.Fatalf("IssueUploadCredential() error = %v", err)
	}
	err = s.Transfer(ctx, wishlist.TransferRequest{Destination: cred.URL, Body: strings.NewReader("x"), Size: 1})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("Transfer() error = %v, want status 403", err)
	}
}

func TestS3Store_DirectCredential(t *testing.T) {
	srv := httptest.NewServer(&fakeS3{})
	defer srv.Close()
	s := newTestS3Store(t, srv, false)

	cred, err := s.IssueUploadCredential(context.Background(), wishlist.UploadRequest{FileName: "set.JPG"})
	if err != nil {
		t.Fatalf("IssueUploadCredential() error = %v", err)
	}
	if cred.URL != "s3://wishlist-images/wishlist/id-1.jpg" {
		t.Errorf("URL = %q", cred.URL)
	}
}

func TestS3Store_PublicURL(t *testing.T) {
	srv := httptest.NewServer(&fakeS3{})
	defer srv.Close()

	s := newTestS3Store(t, srv, true)
	want := "https://wishlist-images.s3.us-east-1.amazonaws.com/wishlist/a.png"
	if got := s.PublicURL("wishlist/a.png"); got != want {
		t.Errorf("PublicURL() = %q, want %q", got, want)
	}

	s.publicBaseURL = "https://cdn.example.com"
	if got := s.PublicURL("wishlist/a.png"); got != "https://cdn.example.com/wishlist/a.png" {
		t.Errorf("PublicURL() with base = %q", got)
	}
}

func TestS3Store_ValidateSetup(t *testing.T) {
	t.Run("bucket reachable", func(t *testing.T) {
		fake := &fakeS3{}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		if err := newTestS3Store(t, srv, false).ValidateSetup(context.Background()); err != nil {
			t.Fatalf("ValidateSetup() error = %v", err)
		}
		if got := fake.last(); got.method != http.MethodHead || !strings.HasPrefix(got.path, "/wishlist-images") {
			t.Errorf("request = %s %s, want HEAD /wishlist-images", got.method, got.path)
		}
	})

	t.Run("bucket missing", func(t *testing.T) {
		srv := httptest.NewServer(&fakeS3{status: http.StatusNotFound})
		defer srv.Close()

		if err := newTestS3Store(t, srv, false).ValidateSetup(context.Background()); err == nil {
			t.Error("ValidateSetup() expected error for missing bucket")
		}
	})
}
