package encryption

import (
	"bytes"
	"fmt"
	"io"

	"paracipher-go/internal/engine"
)

// testHeader is prepended to data by TestEncryptor so sealed output is
// clearly different from plaintext while remaining deterministic.
var testHeader = []byte("PCSEAL\x00\x00")

// TestEncryptor is a simple, deterministic sealer for testing. It prepends a
// fixed 8-byte header during sealing and strips it during unsealing, so
// sealed bundles differ from plaintext without requiring any crypto.
type TestEncryptor struct {
	setupCalled bool
}

var _ engine.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Seal(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (engine.UnsealContext, error) {
	return &TestUnsealContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestUnsealContext strips the test header added by TestEncryptor.
type TestUnsealContext struct{}

var _ engine.UnsealContext = (*TestUnsealContext)(nil)

func (c *TestUnsealContext) Unseal(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test seal header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
