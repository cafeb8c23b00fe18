package keys

import (
	"crypto/ed25519"
	"errors"
	"path/filepath"
	"testing"
)

func TestGenerate_ProducesUsableKeyPair(t *testing.T) {
	m := NewManager("")
	if err := m.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	msg := []byte("hello")
	sig := ed25519.Sign(m.PrivateKey(), msg)
	if !ed25519.Verify(m.PublicKey(), msg, sig) {
		t.Errorf("generated key pair does not verify its own signature")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "signing.key")

	m1 := NewManager(path)
	if err := m1.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	m2 := NewManager(path)
	if err := m2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m2.PublicKeyHex() != m1.PublicKeyHex() {
		t.Errorf("loaded public key = %s, want %s", m2.PublicKeyHex(), m1.PublicKeyHex())
	}
}

func TestLoadOrGenerate_GeneratesWhenAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing.key")
	m := NewManager(path)
	if err := m.LoadOrGenerate(); err != nil {
		t.Fatalf("LoadOrGenerate: %v", err)
	}
	if m.PrivateKey() == nil {
		t.Fatal("expected a generated private key")
	}

	m2 := NewManager(path)
	if err := m2.LoadOrGenerate(); err != nil {
		t.Fatalf("LoadOrGenerate (existing): %v", err)
	}
	if m2.PublicKeyHex() != m.PublicKeyHex() {
		t.Errorf("second LoadOrGenerate should load the same key, got different public key")
	}
}

func TestSave_NoKeyPath(t *testing.T) {
	m := NewManager("")
	if err := m.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := m.Save(); !errors.Is(err, ErrNoKeyPath) {
		t.Errorf("expected ErrNoKeyPath, got %v", err)
	}
}

func TestGenerateHMACKey(t *testing.T) {
	k, err := GenerateHMACKey()
	if err != nil {
		t.Fatalf("GenerateHMACKey: %v", err)
	}
	if k.Len() != 32 {
		t.Errorf("hmac key length = %d, want 32", k.Len())
	}
	k.Zero()
	if k.Len() != 0 {
		t.Errorf("expected length 0 after Zero")
	}
}
