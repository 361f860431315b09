package database

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"wishlist-go/internal/testutil"
	"wishlist-go/internal/wishlist"
)

func newTestStorage(t *testing.T, maxSize int64) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(":memory:", maxSize, testutil.FixedClock())
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorage_GetSetDelete(t *testing.T) {
	s := newTestStorage(t, 0)
	key := "wishlist:draft:user-123:add-item"

	if _, found, err := s.Get(key); err != nil || found {
		t.Fatalf("Get() on empty db = found %v, err %v", found, err)
	}

	if err := s.Set(key, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(key, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("second Set() error = %v", err)
	}

	got, found, err := s.Get(key)
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("Get() = %q, want %q", got, `{"v":2}`)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := s.Get(key); found {
		t.Error("Get() found key after Delete()")
	}
	if err := s.Delete(key); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestSQLiteStorage_Quota(t *testing.T) {
	s := newTestStorage(t, 64)

	if err := s.Set("a", []byte(strings.Repeat("x", 40))); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	err := s.Set("b", []byte(strings.Repeat("y", 40)))
	if !errors.Is(err, wishlist.ErrQuotaExceeded) {
		t.Errorf("Set() over quota error = %v, want ErrQuotaExceeded", err)
	}

	// Replacing a key only counts its new size.
	if err := s.Set("a", []byte(strings.Repeat("z", 60))); err != nil {
		t.Errorf("Set() replacing within quota error = %v", err)
	}
}

func TestSQLiteStorage_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "drafts.db")

	s, err := NewSQLiteStorage(path, 0, testutil.FixedClock())
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	if err := s.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStorage(path, 0, testutil.FixedClock())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, found, err := reopened.Get("k")
	if err != nil || !found || string(got) != "v" {
		t.Errorf("Get() after reopen = %q, %v, %v", got, found, err)
	}
	if reopened.Path() != path {
		t.Errorf("Path() = %q, want %q", reopened.Path(), path)
	}
}

func TestSQLiteStorage_CheckMigrations(t *testing.T) {
	s := newTestStorage(t, 0)
	if err := s.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v", err)
	}
}
