// Package audit implements replay-based verification of a ledger against
// its journal, plus an independent hash-chained log of operational
// events (the AuditProofChain) separate from the transaction journal
// itself.
package audit

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/finledger/finledger/pkg/ledgererr"
)

// EventKind is one of the stable, persisted audit event tags.
type EventKind string

const (
	EventTransactionProcessed EventKind = "transaction_processed"
	EventTransactionRolledBack EventKind = "transaction_rolled_back"
	EventAccountCreated       EventKind = "account_created"
	EventAssetRegistered      EventKind = "asset_registered"
	EventBalanceUpdated       EventKind = "balance_updated"
	EventSystemCheckpoint     EventKind = "system_checkpoint"
	EventStateChanged         EventKind = "state_changed"
	EventContractExecuted     EventKind = "contract_executed"
)

// AuditEntry is one link in the AuditProofChain.
type AuditEntry struct {
	Timestamp    int64
	EventType    EventKind
	Data         []byte
	PreviousHash []byte // nil for the first entry
	Hash         []byte
}

// ProofChain is an independent, append-only log of lifecycle events. It
// never stores transactions directly; the journal is the transaction
// record of truth. Same single-writer contract as ledger.Ledger and
// journal.Journal.
type ProofChain struct {
	entries []AuditEntry
	now     func() time.Time
}

// NewProofChain returns an empty chain.
func NewProofChain() *ProofChain {
	return &ProofChain{entries: make([]AuditEntry, 0), now: time.Now}
}

// AppendEvent records a new event, linking it to the current tip.
func (c *ProofChain) AppendEvent(kind EventKind, data []byte) (*AuditEntry, error) {
	var prevHash []byte
	if len(c.entries) > 0 {
		prevHash = c.entries[len(c.entries)-1].Hash
	}

	ts := c.now().Unix()
	hash := eventHash(ts, kind, data, prevHash)

	entry := AuditEntry{
		Timestamp:    ts,
		EventType:    kind,
		Data:         append([]byte(nil), data...),
		PreviousHash: prevHash,
		Hash:         hash,
	}
	c.entries = append(c.entries, entry)
	return &entry, nil
}

// eventHash computes SHA256(timestamp_le ‖ event_type_tag ‖ data ‖ previous_hash).
func eventHash(timestamp int64, kind EventKind, data, previousHash []byte) []byte {
	h := sha256.New()
	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], uint64(timestamp))
	h.Write(tsBuf[:])
	h.Write([]byte(kind))
	h.Write(data)
	h.Write(previousHash)
	return h.Sum(nil)
}

// Replay re-appends an event using a previously recorded timestamp,
// recomputing its hash rather than trusting one read off disk — the same
// never-trust-the-stored-hash discipline pkg/journal's Append/LoadPlain
// apply to transactions. Used by LoadChain to rebuild a persisted chain.
func (c *ProofChain) Replay(timestamp int64, kind EventKind, data []byte) (*AuditEntry, error) {
	var prevHash []byte
	if len(c.entries) > 0 {
		prevHash = c.entries[len(c.entries)-1].Hash
	}

	hash := eventHash(timestamp, kind, data, prevHash)
	entry := AuditEntry{
		Timestamp:    timestamp,
		EventType:    kind,
		Data:         append([]byte(nil), data...),
		PreviousHash: prevHash,
		Hash:         hash,
	}
	c.entries = append(c.entries, entry)
	return &entry, nil
}

// Len returns the number of recorded events.
func (c *ProofChain) Len() int { return len(c.entries) }

// Entries returns a copy of every recorded event, in order.
func (c *ProofChain) Entries() []AuditEntry {
	out := make([]AuditEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// TipHash returns the hash of the most recent entry, or nil if empty.
func (c *ProofChain) TipHash() []byte {
	if len(c.entries) == 0 {
		return nil
	}
	return c.entries[len(c.entries)-1].Hash
}

// VerifyChain walks every entry, recomputing its hash and checking
// linkage, and fails fast on the first break.
func (c *ProofChain) VerifyChain() error {
	var prevHash []byte
	for i, e := range c.entries {
		recomputed := eventHash(e.Timestamp, e.EventType, e.Data, prevHash)
		if subtle.ConstantTimeCompare(recomputed, e.Hash) != 1 {
			return ledgererr.Wrap(ledgererr.KindIntegrity, ErrChainBroken, fmt.Sprintf("entry %d hash mismatch", i))
		}
		if i == 0 {
			if e.PreviousHash != nil {
				return ledgererr.Wrap(ledgererr.KindIntegrity, ErrChainBroken, "first entry must have no previous_hash")
			}
		} else if subtle.ConstantTimeCompare(e.PreviousHash, prevHash) != 1 {
			return ledgererr.Wrap(ledgererr.KindIntegrity, ErrChainBroken, fmt.Sprintf("entry %d previous_hash mismatch", i))
		}
		prevHash = e.Hash
	}
	return nil
}
