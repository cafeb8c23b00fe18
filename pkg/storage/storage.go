// Package storage implements the authenticated-encryption envelope used
// to persist a journal: password-derived or directly supplied key,
// ChaCha20-Poly1305 AEAD, salt ‖ ciphertext on disk, base64-encoded.
package storage

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/finledger/finledger/pkg/ledgererr"
	"github.com/finledger/finledger/pkg/secret"
)

const saltSize = 16
const keySize = 32

// KDFParams are the Argon2id cost parameters. Tuned for roughly 100ms on
// a developer workstation. These are fixed and versioned alongside the
// on-disk format — changing them changes what the format implies.
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDFParams is the format's documented, fixed cost.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4}
}

// DeriveKey runs Argon2id over password and salt, returning a 32-byte key
// wrapped for explicit zeroing.
func DeriveKey(password []byte, salt [saltSize]byte, params KDFParams) *secret.Bytes {
	key := argon2.IDKey(password, salt[:], params.Time, params.Memory, params.Threads, keySize)
	return secret.New(key)
}

// RandomSalt returns a fresh random 16-byte salt.
func RandomSalt() ([saltSize]byte, error) {
	var salt [saltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, fmt.Errorf("storage: generate salt: %w", err)
	}
	return salt, nil
}

// EncryptWithKey encrypts plaintext under a directly supplied 32-byte
// key; the on-disk form omits the salt entirely (direct-key mode).
func EncryptWithKey(key, plaintext []byte) (string, error) {
	if len(key) != keySize {
		return "", ledgererr.Wrap(ledgererr.KindCrypto, ErrInvalidKeyFormat, fmt.Sprintf("expected %d bytes, got %d", keySize, len(key)))
	}
	ciphertext, err := seal(key, plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptWithKey reverses EncryptWithKey.
func DecryptWithKey(key []byte, encoded string) ([]byte, error) {
	if len(key) != keySize {
		return nil, ledgererr.Wrap(ledgererr.KindCrypto, ErrInvalidKeyFormat, fmt.Sprintf("expected %d bytes, got %d", keySize, len(key)))
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("storage: decode base64: %w", err)
	}
	return open(key, raw)
}

// EncryptWithPassword generates a fresh salt, derives a key via Argon2id,
// and encrypts plaintext. The on-disk form is base64(salt ‖ ciphertext).
func EncryptWithPassword(password, plaintext []byte, params KDFParams) (string, error) {
	salt, err := RandomSalt()
	if err != nil {
		return "", err
	}
	key := DeriveKey(password, salt, params)
	defer key.Zero()

	ciphertext, err := seal(key.Slice(), plaintext)
	if err != nil {
		return "", err
	}

	envelope := make([]byte, 0, saltSize+len(ciphertext))
	envelope = append(envelope, salt[:]...)
	envelope = append(envelope, ciphertext...)
	return base64.StdEncoding.EncodeToString(envelope), nil
}

// DecryptWithPassword detects a salt-present envelope by length (data
// shorter than saltSize+overhead is treated as malformed — a direct-key
// envelope has no salt at all and must go through DecryptWithKey), derives
// the key, and decrypts.
func DecryptWithPassword(password []byte, encoded string, params KDFParams) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("storage: decode base64: %w", err)
	}
	if len(raw) < saltSize {
		return nil, ledgererr.Wrap(ledgererr.KindCrypto, ErrAuthenticationFailed, "envelope too short to contain a salt")
	}

	var salt [saltSize]byte
	copy(salt[:], raw[:saltSize])
	ciphertext := raw[saltSize:]

	key := DeriveKey(password, salt, params)
	defer key.Zero()

	return open(key.Slice(), ciphertext)
}

func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("storage: init aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("storage: generate nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

func open(key, data []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("storage: init aead: %w", err)
	}
	if len(data) < aead.NonceSize() {
		return nil, ledgererr.Wrap(ledgererr.KindCrypto, ErrAuthenticationFailed, "ciphertext shorter than nonce")
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.KindCrypto, ErrAuthenticationFailed, err.Error())
	}
	return plaintext, nil
}
