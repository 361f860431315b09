package wishlist

import "errors"

// ErrQuotaExceeded is returned by Storage.Set when the backend has no room
// for the value. Callers treat it as recoverable: the write is dropped.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// ErrLocked is returned when reading from encrypted storage that has not been
// unlocked with a passphrase.
var ErrLocked = errors.New("storage is locked")

// ErrCorrupted is returned by Storage.Get when a stored value exists but can
// never be read back, such as a record that no longer decrypts. Callers may
// delete the key.
var ErrCorrupted = errors.New("stored value is corrupted")

// Storage is a synchronous key-value store for small textual records such as
// persisted drafts. Implementations must be safe for concurrent use.
type Storage interface {
	// Get returns the value stored under key. found is false when the key does
	// not exist; that is not an error. An unreadable value yields an error
	// wrapping ErrCorrupted.
	Get(key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any existing value.
	// Returns an error wrapping ErrQuotaExceeded when the backend is full.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases any resources held by the backend.
	Close() error
}
