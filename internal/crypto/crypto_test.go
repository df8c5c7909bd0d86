package crypto

import (
	"crypto/rand"
	"testing"
)

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	key := make([]byte, 32)
	rand.Read(key)

	enc, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}

	original := "my-secret-token-12345"
	ciphertext, err := enc.Encrypt(original)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if ciphertext == original {
		t.Fatal("ciphertext should differ from plaintext")
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}

	if decrypted != original {
		t.Fatalf("decrypted %q != original %q", decrypted, original)
	}
}

func TestEncryptDecrypt_NoopMode(t *testing.T) {
	enc, err := NewEncryptor(nil)
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}

	text := "plaintext-secret"
	ct, err := enc.Encrypt(text)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ct != text {
		t.Fatalf("noop encrypt should return plaintext, got %q", ct)
	}

	pt, err := enc.Decrypt(ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if pt != text {
		t.Fatalf("noop decrypt should return plaintext, got %q", pt)
	}
}

func TestNewEncryptor_InvalidKeyLength(t *testing.T) {
	_, err := NewEncryptor([]byte("too-short"))
	if err == nil {
		t.Fatal("expected error for invalid key length")
	}
}

func TestNewEncryptorFromSecret_RoundtripsAnyLength(t *testing.T) {
	enc, err := NewEncryptorFromSecret([]byte("a short passphrase"), "provider-api-key")
	if err != nil {
		t.Fatalf("new encryptor from secret: %v", err)
	}

	original := "sk-live-abc123"
	ciphertext, err := enc.Encrypt(original)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ciphertext == original {
		t.Fatal("ciphertext should differ from plaintext")
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if decrypted != original {
		t.Fatalf("decrypted %q != original %q", decrypted, original)
	}
}

func TestNewEncryptorFromSecret_DifferentInfoDerivesDifferentKey(t *testing.T) {
	secret := []byte("shared root secret")
	encA, err := NewEncryptorFromSecret(secret, "purpose-a")
	if err != nil {
		t.Fatalf("new encryptor a: %v", err)
	}
	encB, err := NewEncryptorFromSecret(secret, "purpose-b")
	if err != nil {
		t.Fatalf("new encryptor b: %v", err)
	}

	ciphertext, err := encA.Encrypt("plaintext")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := encB.Decrypt(ciphertext); err == nil {
		t.Fatal("expected decrypt under a different info string to fail")
	}
}

func TestNewEncryptorFromSecret_EmptySecretIsNoop(t *testing.T) {
	enc, err := NewEncryptorFromSecret(nil, "provider-api-key")
	if err != nil {
		t.Fatalf("new encryptor from secret: %v", err)
	}
	ct, err := enc.Encrypt("plaintext")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ct != "plaintext" {
		t.Fatalf("noop encrypt should return plaintext, got %q", ct)
	}
}
