package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"wishlist-go/internal/wishlist"
)

// BadgerStorage keeps records in an embedded Badger database.
type BadgerStorage struct {
	db      *badger.DB
	maxSize int64

	// mu makes the quota scan and the write one step.
	mu sync.Mutex
}

// NewBadgerStorage opens (or creates) a Badger database in dir.
func NewBadgerStorage(dir string, maxSize int64) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.SyncWrites = true
	return openBadger(opts, maxSize)
}

// NewInMemoryBadgerStorage opens a Badger database that lives only in memory.
func NewInMemoryBadgerStorage(maxSize int64) (*BadgerStorage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts, maxSize)
}

func openBadger(opts badger.Options, maxSize int64) (*BadgerStorage, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerStorage{db: db, maxSize: maxSize}, nil
}

func (s *BadgerStorage) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

func (s *BadgerStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		used, err := usedExcluding(txn, key)
		if err != nil {
			return err
		}
		if used+int64(len(key)+len(value)) > s.maxSize {
			return wishlist.ErrQuotaExceeded
		}
		return txn.Set([]byte(key), value)
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("setting %s: %w: %w", key, wishlist.ErrQuotaExceeded, err)
	}
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStorage) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing badger db: %w", err)
	}
	return nil
}

// usedExcluding sums key and value sizes of every live record except key.
func usedExcluding(txn *badger.Txn, key string) (int64, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var total int64
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		if string(item.Key()) == key {
			continue
		}
		total += int64(len(item.Key())) + item.ValueSize()
	}
	return total, nil
}

// Compile-time check that BadgerStorage implements wishlist.Storage interface
var _ wishlist.Storage = (*BadgerStorage)(nil)
