package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"wishlist-go/internal/wishlist"
)

// testPrefix marks records sealed by TestEncryptor.
var testPrefix = []byte("wishlist-test-sealed:")

// TestEncryptor is a deterministic stand-in for AgeEncryptor. Encrypt adds a
// textual prefix and Decrypt strips it. Unlock checks the passphrase given to
// Setup, if any, so lock and unlock flows can be exercised without scrypt.
type TestEncryptor struct {
	mu         sync.Mutex
	passphrase string
}

var _ wishlist.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testPrefix); err != nil {
		return fmt.Errorf("writing test prefix: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (wishlist.DecryptionContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, errors.New("wrong passphrase")
	}
	return TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext strips the prefix added by TestEncryptor.
type TestDecryptionContext struct{}

var _ wishlist.DecryptionContext = TestDecryptionContext{}

func (TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading sealed data: %w", err)
	}
	rest, ok := bytes.CutPrefix(data, testPrefix)
	if !ok {
		return errors.New("data was not sealed by the test encryptor")
	}
	if _, err := w.Write(rest); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
