package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wishlist-go/internal/config"
	"wishlist-go/internal/draft"
	"wishlist-go/internal/upload"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig("user-123", t.TempDir())
	cfg.LogLevel = "error"
	cfg.ObjectStore = config.ObjectStoreConfig{Type: "memory", Name: "test"}
	cfg.Encryption.Type = "test"
	return cfg
}

func openApp(t *testing.T, cfg *config.Config) *WishlistApp {
	t.Helper()
	a, err := NewWishlistApp(context.Background(), cfg, "Test")
	if err != nil {
		t.Fatalf("NewWishlistApp() error = %v", err)
	}
	return a
}

func TestWishlistApp_DraftSurvivesRestart(t *testing.T) {
	cfg := newTestConfig(t)

	a := openApp(t, cfg)
	if a.Restore() {
		t.Error("Restore() = true with no stored draft")
	}
	if err := a.SetField("title", "LEGO Star Wars"); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if err := a.SetField("pieceCount", "1351"); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b := openApp(t, cfg)
	defer b.Close()
	if !b.Restore() {
		t.Fatal("Restore() = false, want stored draft")
	}
	st := b.Draft()
	if st.FormData.Title != "LEGO Star Wars" {
		t.Errorf("Title = %q", st.FormData.Title)
	}
	if st.FormData.PieceCount == nil || *st.FormData.PieceCount != 1351 {
		t.Errorf("PieceCount = %v, want 1351", st.FormData.PieceCount)
	}
	if !st.IsRestored {
		t.Error("IsRestored = false after Restore")
	}
}

func TestWishlistApp_SetFieldErrors(t *testing.T) {
	a := openApp(t, newTestConfig(t))
	defer a.Close()

	if err := a.SetField("colour", "red"); err == nil {
		t.Error("SetField() with unknown field expected error")
	}
	if err := a.SetField("priority", "high"); err == nil {
		t.Error("SetField() with non-numeric priority expected error")
	}
}

func TestWishlistApp_Submit(t *testing.T) {
	cfg := newTestConfig(t)

	a := openApp(t, cfg)
	_, err := a.Submit()
	var subErr *draft.SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("Submit() on empty draft error = %v, want *draft.SubmissionError", err)
	}
	if _, ok := subErr.Fields["title"]; !ok {
		t.Errorf("SubmissionError.Fields = %v, want title", subErr.Fields)
	}

	if err := a.SetField("title", "Millennium Falcon"); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	a.persistence.Flush()

	data, err := a.Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if data.Title != "Millennium Falcon" || data.Store != draft.DefaultStore {
		t.Errorf("submitted %+v", data)
	}
	if a.Draft().FormData.Title != "" {
		t.Error("draft not cleared after submit")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b := openApp(t, cfg)
	defer b.Close()
	if b.Restore() {
		t.Error("Restore() = true after submit cleared the draft")
	}
}

func TestWishlistApp_SubmitAnonymous(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.UserID = ""
	a := openApp(t, cfg)
	defer a.Close()

	if _, err := a.Submit(); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Submit() error = %v, want ErrNotSignedIn", err)
	}
	if _, err := a.StorageKey(); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("StorageKey() error = %v, want ErrNotSignedIn", err)
	}
}

func TestWishlistApp_UploadImage(t *testing.T) {
	a := openApp(t, newTestConfig(t))
	defer a.Close()

	img := filepath.Join(t.TempDir(), "falcon.png")
	if err := os.WriteFile(img, pngBytes, 0644); err != nil {
		t.Fatalf("writing image: %v", err)
	}

	url, err := a.UploadImage(context.Background(), img, true, upload.Options{})
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if !strings.HasPrefix(url, "memory://test/wishlist/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("url = %q", url)
	}
	if got := a.Draft().FormData.ImageURL; got == nil || *got != url {
		t.Errorf("draft imageUrl = %v, want %q", got, url)
	}
}

func TestWishlistApp_UploadCompresses(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Upload.Preset = "low-bandwidth"
	a := openApp(t, cfg)
	defer a.Close()

	noise := image.NewRGBA(image.Rect(0, 0, 1600, 400))
	rand.New(rand.NewSource(1)).Read(noise.Pix)
	var buf bytes.Buffer
	if err := png.Encode(&buf, noise); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	img := filepath.Join(t.TempDir(), "noise.png")
	if err := os.WriteFile(img, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing image: %v", err)
	}

	tests := []struct {
		name       string
		opts       upload.Options
		wantSuffix string
		wantPreset upload.PresetName
	}{
		{"config preset", upload.Options{}, ".jpg", upload.PresetLowBandwidth},
		{"explicit preset", upload.Options{Preset: "high-quality"}, ".jpg", upload.PresetHighQuality},
		{"skipped", upload.Options{SkipCompression: true}, ".png", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := a.UploadImage(context.Background(), img, false, tt.opts)
			if err != nil {
				t.Fatalf("UploadImage() error = %v", err)
			}
			if !strings.HasSuffix(url, tt.wantSuffix) {
				t.Errorf("url = %q, want suffix %q", url, tt.wantSuffix)
			}
			snap := a.orchestrator.Snapshot()
			if snap.Preset != tt.wantPreset {
				t.Errorf("Preset = %q, want %q", snap.Preset, tt.wantPreset)
			}
			if tt.wantPreset != "" && (snap.Compression == nil || !snap.Compression.Compressed) {
				t.Errorf("Compression = %+v, want compressed", snap.Compression)
			}
		})
	}
}

func TestWishlistApp_UploadRejectsType(t *testing.T) {
	a := openApp(t, newTestConfig(t))
	defer a.Close()

	doc := filepath.Join(t.TempDir(), "notes.png")
	if err := os.WriteFile(doc, []byte("not an image\n"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	_, err := a.UploadImage(context.Background(), doc, true, upload.Options{})
	if err == nil || !strings.Contains(err.Error(), "JPEG") {
		t.Errorf("UploadImage() error = %v, want allowed types message", err)
	}
	var verr *upload.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("UploadImage() error = %T, want *upload.ValidationError", err)
	}
	if a.Draft().FormData.ImageURL != nil {
		t.Error("imageUrl attached after rejected upload")
	}
}

func TestWishlistApp_EncryptedStorage(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Storage.Encrypted = true

	a := openApp(t, cfg)
	if err := a.Unlock(""); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := a.SetField("title", "Falcon"); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	key := "wishlist:draft:user-123:add-item"
	raw, err := os.ReadFile(filepath.Join(cfg.Storage.Dir, key))
	if err != nil {
		t.Fatalf("reading stored record: %v", err)
	}
	if !strings.HasPrefix(string(raw), "wishlist-test-sealed:") {
		t.Errorf("stored record not sealed: %q", raw)
	}

	b := openApp(t, cfg)
	defer b.Close()
	if !b.NeedsPassphrase() {
		t.Fatal("NeedsPassphrase() = false for encrypted storage")
	}
	if err := b.Unlock(""); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if !b.Restore() {
		t.Fatal("Restore() = false after unlock")
	}
	if b.Draft().FormData.Title != "Falcon" {
		t.Errorf("Title = %q", b.Draft().FormData.Title)
	}
}

func TestWishlistApp_MetricsTextfile(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Metrics.Enabled = true

	a := openApp(t, cfg)
	a.Restore()
	if err := a.SetField("title", "Falcon"); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("reading metrics textfile: %v", err)
	}
	for _, want := range []string{
		`wishlist_draft_loads_total{outcome="absent"} 1`,
		"wishlist_draft_writes_total 1",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestWishlistApp_StorageKey(t *testing.T) {
	a := openApp(t, newTestConfig(t))
	defer a.Close()

	key, err := a.StorageKey()
	if err != nil {
		t.Fatalf("StorageKey() error = %v", err)
	}
	if key != "wishlist:draft:user-123:add-item" {
		t.Errorf("StorageKey() = %q", key)
	}
}
