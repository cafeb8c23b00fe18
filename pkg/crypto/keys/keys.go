// Package keys manages the Ed25519 signing keys and HMAC keys used to
// authenticate individual transactions and the audit trail.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/finledger/finledger/pkg/secret"
)

// Sentinel errors for key management.
var (
	ErrNoKeyPath    = errors.New("keys: no key path specified")
	ErrNoKeyLoaded  = errors.New("keys: no key loaded")
	ErrInvalidLength = errors.New("keys: invalid key length")
)

// Manager holds one Ed25519 key pair, optionally backed by a file.
type Manager struct {
	keyPath    string
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// NewManager returns a Manager that will load from / save to keyPath.
// An empty keyPath means keys exist only in memory.
func NewManager(keyPath string) *Manager {
	return &Manager{keyPath: keyPath}
}

// LoadOrGenerate loads the key at keyPath if it exists, otherwise
// generates a fresh key pair and, if keyPath is set, saves it.
func (m *Manager) LoadOrGenerate() error {
	if m.keyPath != "" {
		if _, err := os.Stat(m.keyPath); err == nil {
			return m.Load()
		}
	}
	return m.Generate()
}

// Load reads a hex-encoded Ed25519 private key from keyPath.
func (m *Manager) Load() error {
	if m.keyPath == "" {
		return ErrNoKeyPath
	}
	data, err := os.ReadFile(m.keyPath)
	if err != nil {
		return fmt.Errorf("keys: read key file: %w", err)
	}
	raw, err := hex.DecodeString(string(data))
	if err != nil {
		return fmt.Errorf("keys: decode key hex: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(raw), ed25519.PrivateKeySize)
	}
	m.privateKey = ed25519.PrivateKey(raw)
	m.publicKey = m.privateKey.Public().(ed25519.PublicKey)
	return nil
}

// Generate creates a fresh key pair and, if keyPath is set, saves it.
func (m *Manager) Generate() error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("keys: generate key pair: %w", err)
	}
	m.privateKey = priv
	m.publicKey = pub

	if m.keyPath != "" {
		return m.Save()
	}
	return nil
}

// Save writes the private key to keyPath, hex-encoded, with 0600
// permissions, creating its parent directory if needed.
func (m *Manager) Save() error {
	if m.keyPath == "" {
		return ErrNoKeyPath
	}
	if m.privateKey == nil {
		return ErrNoKeyLoaded
	}
	if err := os.MkdirAll(filepath.Dir(m.keyPath), 0o700); err != nil {
		return fmt.Errorf("keys: create key directory: %w", err)
	}
	keyHex := hex.EncodeToString(m.privateKey)
	if err := os.WriteFile(m.keyPath, []byte(keyHex), 0o600); err != nil {
		return fmt.Errorf("keys: write key file: %w", err)
	}
	return nil
}

// PrivateKey returns the loaded private key, or nil.
func (m *Manager) PrivateKey() ed25519.PrivateKey { return m.privateKey }

// PublicKey returns the loaded public key, or nil.
func (m *Manager) PublicKey() ed25519.PublicKey { return m.publicKey }

// PublicKeyHex returns the public key as a hex string, or "" if unloaded.
func (m *Manager) PublicKeyHex() string {
	if m.publicKey == nil {
		return ""
	}
	return hex.EncodeToString(m.publicKey)
}

// GenerateHMACKey returns a fresh 32-byte HMAC key wrapped for explicit
// zeroing.
func GenerateHMACKey() (*secret.Bytes, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("keys: generate hmac key: %w", err)
	}
	return secret.New(key), nil
}
