// Package crypto provides at-rest encryption for uploaded files.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when the encryption key is empty.
	ErrInvalidKey = errors.New("invalid encryption key: must not be empty")
	// ErrDecryptionFailed is returned when decryption fails due to invalid ciphertext or wrong key.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
)

// sealedMagic prefixes every sealed payload so stored files can be told apart from plaintext.
var sealedMagic = []byte("FGSEAL1\x00")

// UploadEncryptor provides AES-256-GCM encryption for uploaded file contents.
// It uses authenticated encryption to ensure both confidentiality and integrity.
type UploadEncryptor struct {
	gcm cipher.AEAD
}

// NewUploadEncryptor creates a new encryptor from a key string.
// The key can be:
//   - A base64-encoded 32-byte key (e.g., from: openssl rand -base64 32)
//   - Any passphrase (will be hashed to 32 bytes with SHA-256)
func NewUploadEncryptor(keyInput string) (*UploadEncryptor, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	var key []byte
	decoded, err := base64.StdEncoding.DecodeString(keyInput)
	if err == nil && len(decoded) == 32 {
		key = decoded
	} else {
		hash := sha256.Sum256([]byte(keyInput))
		key = hash[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &UploadEncryptor{gcm: gcm}, nil
}

// Seal encrypts data and returns magic || nonce || ciphertext || tag.
func (e *UploadEncryptor) Seal(data []byte) ([]byte, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealedMagic)+len(nonce)+len(data)+e.gcm.Overhead())
	out = append(out, sealedMagic...)
	out = append(out, nonce...)
	return e.gcm.Seal(out, nonce, data, nil), nil
}

// Open decrypts a payload produced by Seal.
func (e *UploadEncryptor) Open(sealed []byte) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, fmt.Errorf("%w: missing header", ErrDecryptionFailed)
	}
	data := sealed[len(sealedMagic):]

	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize+e.gcm.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}
	return plaintext, nil
}

// IsSealed reports whether data carries the header written by Seal.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, sealedMagic)
}
