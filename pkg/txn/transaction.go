// Package txn defines the canonical transaction record: a single value
// movement from one account to another, its signing preimage, and the
// optional Ed25519 signature / HMAC that authenticate it.
package txn

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/finledger/finledger/pkg/ledgererr"
)

// Sentinel errors for transaction operations.
var (
	ErrSignatureInvalid  = errors.New("txn: signature invalid")
	ErrHmacInvalid       = errors.New("txn: hmac invalid")
	ErrInvalidKeyFormat  = errors.New("txn: invalid key format")
	ErrNoSignaturePresent = errors.New("txn: no signature present")
	ErrNoHMACPresent     = errors.New("txn: no integrity hmac present")
)

const nonceSize = 12 // 24 hex chars

// Transaction is immutable after construction except for the two
// optional authentication fields, which are filled in by Sign/SignHMAC
// after New returns.
type Transaction struct {
	ID            string  `json:"id"`
	Timestamp     int64   `json:"timestamp"`
	Amount        int64   `json:"amount"`
	Currency      string  `json:"currency"`
	FromAccount   string  `json:"from_account"`
	ToAccount     string  `json:"to_account"`
	Memo          *string `json:"memo"`
	Nonce         string  `json:"nonce"` // 24 lowercase hex chars
	Signature     *string `json:"signature"`
	IntegrityHMAC *string `json:"integrity_hmac"`
	DependsOn     *string `json:"depends_on"`
}

// New constructs a Transaction with a fresh random nonce and a derived
// id. memo and dependsOn are optional; pass "" for either to omit them.
func New(timestamp, amount int64, currency, from, to, memo, dependsOn string) (*Transaction, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("txn: generate nonce: %w", err)
	}
	nonceHex := hex.EncodeToString(nonce)

	t := &Transaction{
		Timestamp:   timestamp,
		Amount:      amount,
		Currency:    currency,
		FromAccount: from,
		ToAccount:   to,
		Nonce:       nonceHex,
	}
	if memo != "" {
		t.Memo = &memo
	}
	if dependsOn != "" {
		t.DependsOn = &dependsOn
	}
	t.ID = deriveID(timestamp, from, to, amount)
	return t, nil
}

// deriveID produces the 8-byte hex id from (timestamp, source, sink, amount).
func deriveID(timestamp int64, from, to string, amount int64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%d", timestamp, from, to, amount)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// memoOrEmpty returns the memo string, or "" if absent.
func (t *Transaction) memoOrEmpty() string {
	if t.Memo == nil {
		return ""
	}
	return *t.Memo
}

// Preimage returns the canonical signing preimage (spec §3), the exact
// byte string used for the Ed25519 signature and the per-entry HMAC. The
// journal's entry hash and the Merkle leaves are computed over
// CanonicalJSON with its keys sorted by pkg/commitment, not over this.
func (t *Transaction) Preimage() []byte {
	s := fmt.Sprintf("%d|%d|%s|%s|%s|%s|%s",
		t.Timestamp, t.Amount, t.Currency, t.FromAccount, t.ToAccount, t.memoOrEmpty(), t.Nonce)
	return []byte(s)
}

// Sign signs the canonical preimage with priv and stores the 64-byte
// signature, hex-encoded, on the transaction.
func (t *Transaction) Sign(priv ed25519.PrivateKey) error {
	if len(priv) != ed25519.PrivateKeySize {
		return ledgererr.Wrap(ledgererr.KindCrypto, ErrInvalidKeyFormat, "ed25519 private key")
	}
	sig := ed25519.Sign(priv, t.Preimage())
	hexSig := hex.EncodeToString(sig)
	t.Signature = &hexSig
	return nil
}

// VerifySignature checks the stored signature against pub.
func (t *Transaction) VerifySignature(pub ed25519.PublicKey) (bool, error) {
	if t.Signature == nil {
		return false, ledgererr.Wrap(ledgererr.KindCrypto, ErrNoSignaturePresent, t.ID)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, ledgererr.Wrap(ledgererr.KindCrypto, ErrInvalidKeyFormat, "ed25519 public key")
	}
	sig, err := hex.DecodeString(*t.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false, ledgererr.Wrap(ledgererr.KindCrypto, ErrSignatureInvalid, "malformed signature encoding")
	}
	return ed25519.Verify(pub, t.Preimage(), sig), nil
}

// SignHMAC computes HMAC-SHA256 of the canonical preimage under key and
// stores it, hex-encoded, as the per-entry integrity hmac.
func (t *Transaction) SignHMAC(key []byte) error {
	mac := hmac.New(sha256.New, key)
	mac.Write(t.Preimage())
	sum := hex.EncodeToString(mac.Sum(nil))
	t.IntegrityHMAC = &sum
	return nil
}

// VerifyHMAC recomputes the HMAC under key and compares it against the
// stored value in constant time.
func (t *Transaction) VerifyHMAC(key []byte) (bool, error) {
	if t.IntegrityHMAC == nil {
		return false, ledgererr.Wrap(ledgererr.KindCrypto, ErrNoHMACPresent, t.ID)
	}
	stored, err := hex.DecodeString(*t.IntegrityHMAC)
	if err != nil {
		return false, ledgererr.Wrap(ledgererr.KindCrypto, ErrHmacInvalid, "malformed hmac encoding")
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(t.Preimage())
	computed := mac.Sum(nil)
	return subtle.ConstantTimeCompare(stored, computed) == 1, nil
}

// CanonicalJSON marshals the transaction to its stable wire shape (spec
// §6). Field order in the emitted bytes is not significant for loading.
// Signing and the HMAC use Preimage; pkg/journal and pkg/merkle hash this
// representation after sorting its keys.
func (t *Transaction) CanonicalJSON() ([]byte, error) {
	return json.Marshal(t)
}

// FromCanonicalJSON parses the wire shape back into a Transaction.
func FromCanonicalJSON(data []byte) (*Transaction, error) {
	var t Transaction
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("txn: unmarshal canonical json: %w", err)
	}
	return &t, nil
}

// Clone returns a deep copy, used by the journal which owns its own copy
// of every appended transaction.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Memo != nil {
		m := *t.Memo
		c.Memo = &m
	}
	if t.Signature != nil {
		s := *t.Signature
		c.Signature = &s
	}
	if t.IntegrityHMAC != nil {
		h := *t.IntegrityHMAC
		c.IntegrityHMAC = &h
	}
	if t.DependsOn != nil {
		d := *t.DependsOn
		c.DependsOn = &d
	}
	return &c
}
