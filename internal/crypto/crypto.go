package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Encryptor provides AES-256-GCM encryption for config.ProviderConfig.APIKey
// values at rest. A zero-value gcm field means no-op mode: values pass
// through unencrypted, for deployments that haven't configured a key yet.
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor creates an Encryptor from an already-32-byte AES-256 key. If
// key is empty, a no-op encryptor is returned. Any other length is rejected
// outright — callers holding an arbitrary-length secret (an operator-typed
// passphrase, an env var of unknown length) should derive a key with
// NewEncryptorFromSecret instead of truncating or padding it themselves.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) == 0 {
		return &Encryptor{}, nil
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return newGCMEncryptor(key)
}

// NewEncryptorFromSecret derives a 32-byte AES-256 key from secret via
// HKDF-SHA256, so config.ProviderConfig.APIKey encryption-at-rest can be
// keyed off whatever an operator actually sets SKILLSMITH_ENCRYPTION_KEY
// to — a short passphrase, a long one, raw random bytes — without a length
// contract leaking into deployment config. info binds the derived key to
// its purpose (HKDF's application-context separation), so reusing the same
// root secret for a different concern later derives a different key
// instead of silently colliding with this one. An empty secret returns the
// same no-op encryptor as NewEncryptor(nil).
func NewEncryptorFromSecret(secret []byte, info string) (*Encryptor, error) {
	if len(secret) == 0 {
		return &Encryptor{}, nil
	}
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, secret, nil, []byte(info))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}
	return newGCMEncryptor(key)
}

func newGCMEncryptor(key []byte) (*Encryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Encryptor{gcm: gcm}, nil
}

// RandomKey returns n cryptographically random bytes, for callers that need
// an ephemeral key when no persistent one is configured (e.g. a HITL
// prompt-signing key generated fresh per process).
func RandomKey(n int) []byte {
	key := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Sprintf("crypto: read random key: %v", err))
	}
	return key
}

// Encrypt seals plaintext and returns a base64-encoded nonce+ciphertext. In
// no-op mode it returns plaintext unchanged.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if e.gcm == nil {
		return plaintext, nil
	}
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. In no-op mode it returns ciphertext unchanged.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if e.gcm == nil {
		return ciphertext, nil
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ct := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}
