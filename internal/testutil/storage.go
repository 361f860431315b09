package testutil

import (
	"sync"

	"wishlist-go/internal/wishlist"
)

// StorageCall records one call made against a RecordingStorage.
type StorageCall struct {
	Op    string // "get", "set" or "delete"
	Key   string
	Value []byte
}

// RecordingStorage is an in-memory wishlist.Storage that records every call
// and can be told to fail writes. Safe for concurrent use.
type RecordingStorage struct {
	mu     sync.Mutex
	data   map[string][]byte
	calls  []StorageCall
	setErr error
	getErr error
}

// NewRecordingStorage creates an empty RecordingStorage.
func NewRecordingStorage() *RecordingStorage {
	return &RecordingStorage{data: make(map[string][]byte)}
}

// FailSets makes every subsequent Set return err. Pass nil to stop failing.
func (s *RecordingStorage) FailSets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = err
}

// FailGets makes every subsequent Get return err. Pass nil to stop failing.
func (s *RecordingStorage) FailGets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

// Put stores a value without recording a call. Use to seed fixtures.
func (s *RecordingStorage) Put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
}

// Value returns the stored value without recording a call.
func (s *RecordingStorage) Value(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Calls returns the recorded calls with the given op, or all calls if op is empty.
func (s *RecordingStorage) Calls(op string) []StorageCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StorageCall
	for _, c := range s.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets recorded calls but keeps stored data.
func (s *RecordingStorage) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *RecordingStorage) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StorageCall{Op: "get", Key: key})
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *RecordingStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StorageCall{Op: "set", Key: key, Value: append([]byte(nil), value...)})
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *RecordingStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StorageCall{Op: "delete", Key: key})
	delete(s.data, key)
	return nil
}

func (s *RecordingStorage) Close() error { return nil }

var _ wishlist.Storage = (*RecordingStorage)(nil)
