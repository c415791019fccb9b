// Package vault encrypts per-tenant push-provider credentials at rest.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const keySize = 32

var (
	ErrInvalidKey     = errors.New("encryption key must be 32 bytes of hex")
	ErrDecryptFailed  = errors.New("credential decrypt failed")
	ErrEmptyPlaintext = errors.New("plaintext is empty")
)

// Vault seals and opens credential blobs with AES-256-GCM. The wire form is
// nonceHex:cipherHex, a fresh random nonce per call. Decrypt fails closed:
// tampered or malformed input yields ErrDecryptFailed, never a garbled guess.
type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a 64-char hex key. The key is mandatory; callers
// are expected to fail startup when it is absent rather than generate one.
func New(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(key) != keySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

func (v *Vault) Decrypt(blob string) (string, error) {
	parts := strings.SplitN(blob, ":", 2)
	if len(parts) != 2 {
		return "", ErrDecryptFailed
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != v.aead.NonceSize() {
		return "", ErrDecryptFailed
	}
	sealed, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrDecryptFailed
	}

	plain, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}
