// Package journal implements the append-only, hash-chained log of
// JournalEntry records that backs the ledger's tamper-evidence story.
package journal

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/finledger/finledger/pkg/commitment"
	"github.com/finledger/finledger/pkg/ledgererr"
	"github.com/finledger/finledger/pkg/txn"
)

// Entry is one link in the hash chain: a transaction, its position, and
// the hash covering it plus every prior entry.
type Entry struct {
	Transaction *txn.Transaction
	PrevHash    []byte // nil for the first entry
	Hash        []byte
	Sequence    uint64
}

// Journal is an ordered, append-only sequence of Entry. It owns a clone
// of every transaction it is given. Same single-writer, no-internal-
// mutex contract as ledger.Ledger — a caller sharing one Journal across
// goroutines must synchronize externally.
type Journal struct {
	entries  []Entry
	index    *KVIndex // optional, accelerates GetByID/ByAccount; never authoritative
	mirror   Mirror   // optional, best-effort write-behind copy
	attested bool     // true only when loaded from / about to be saved to the encrypted form
	logger   *log.Logger
}

// Option configures a Journal at construction time.
type Option func(*Journal)

// WithIndex attaches an optional KV-backed accelerator.
func WithIndex(idx *KVIndex) Option {
	return func(j *Journal) { j.index = idx }
}

// WithMirror attaches an optional best-effort mirror.
func WithMirror(m Mirror) Option {
	return func(j *Journal) { j.mirror = m }
}

// WithLogger sets the logger used to report non-fatal mirror/index
// failures. Defaults to a stderr logger when nil.
func WithLogger(logger *log.Logger) Option {
	return func(j *Journal) { j.logger = logger }
}

// New returns an empty Journal.
func New(opts ...Option) *Journal {
	j := &Journal{
		entries: make([]Entry, 0),
		mirror:  noopMirror{},
		logger:  log.New(os.Stderr, "[journal] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Attested reports whether this journal's current on-disk representation
// is the authenticated (encrypted) form. Plaintext load/save always
// leaves this false, per the decision in DESIGN.md: the plaintext format
// recomputes its hash chain on load and so cannot itself prove it is
// untampered.
func (j *Journal) Attested() bool { return j.attested }

// Len returns the number of entries.
func (j *Journal) Len() int { return len(j.entries) }

// Append clones t, computes its entry hash, and appends it with the next
// sequence number.
func (j *Journal) Append(t *txn.Transaction) (*Entry, error) {
	clone := t.Clone()

	var prevHash []byte
	if len(j.entries) > 0 {
		prevHash = j.entries[len(j.entries)-1].Hash
	}

	sequence := uint64(len(j.entries))
	hash, err := entryHash(clone, sequence, prevHash)
	if err != nil {
		return nil, err
	}

	entry := Entry{
		Transaction: clone,
		PrevHash:    prevHash,
		Hash:        hash,
		Sequence:    sequence,
	}
	j.entries = append(j.entries, entry)

	if j.index != nil {
		if err := j.index.Put(entry); err != nil {
			j.logger.Printf("index put failed for entry %d: %v", sequence, err)
		}
	}
	if err := j.mirror.Write(entry); err != nil {
		j.logger.Printf("mirror write failed for entry %d: %v", sequence, err)
	}

	return &entry, nil
}

// entryHash computes SHA256(canonical_json(tx) || le64(sequence) || prevHash),
// via pkg/commitment so the journal's entry hash and the Merkle layer's
// leaf hash agree on what "canonical" means for a transaction.
func entryHash(t *txn.Transaction, sequence uint64, prevHash []byte) ([]byte, error) {
	canon, err := canonicalTxJSON(t)
	if err != nil {
		return nil, err
	}

	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], sequence)

	if prevHash != nil {
		return commitment.HashConcat(canon, seqBuf[:], prevHash), nil
	}
	return commitment.HashConcat(canon, seqBuf[:]), nil
}

// canonicalTxJSON runs a transaction's wire JSON through
// commitment.CanonicalizeJSON so hashing is independent of map/field
// ordering, not just this package's own (already-deterministic)
// json.Marshal output.
func canonicalTxJSON(t *txn.Transaction) ([]byte, error) {
	raw, err := t.CanonicalJSON()
	if err != nil {
		return nil, fmt.Errorf("journal: canonicalize transaction: %w", err)
	}
	canon, err := commitment.CanonicalizeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("journal: canonicalize transaction: %w", err)
	}
	return canon, nil
}

// Get returns the entry at sequence.
func (j *Journal) Get(sequence uint64) (*Entry, error) {
	if sequence >= uint64(len(j.entries)) {
		return nil, ledgererr.Wrap(ledgererr.KindStorage, ErrEntryNotFound, fmt.Sprintf("sequence %d", sequence))
	}
	return &j.entries[sequence], nil
}

// GetByID finds the entry whose transaction has the given id. Uses the
// KV index when attached; falls back to a linear scan otherwise. The
// index is purely an optimization — it is never consulted by
// VerifyIntegrity.
func (j *Journal) GetByID(id string) (*Entry, error) {
	if j.index != nil {
		if seq, ok := j.index.LookupByID(id); ok {
			return j.Get(seq)
		}
	}
	for i := range j.entries {
		if j.entries[i].Transaction.ID == id {
			return &j.entries[i], nil
		}
	}
	return nil, ledgererr.Wrap(ledgererr.KindStorage, ErrEntryNotFound, id)
}

// ByAccount returns every entry whose transaction touches name as either
// from_account or to_account, in sequence order.
func (j *Journal) ByAccount(name string) []Entry {
	if j.index != nil {
		if seqs, ok := j.index.LookupByAccount(name); ok {
			out := make([]Entry, 0, len(seqs))
			for _, seq := range seqs {
				if e, err := j.Get(seq); err == nil {
					out = append(out, *e)
				}
			}
			return out
		}
	}
	out := make([]Entry, 0)
	for _, e := range j.entries {
		if e.Transaction.FromAccount == name || e.Transaction.ToAccount == name {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns every entry in sequence order. Always the
// authoritative replay source, regardless of any attached index.
func (j *Journal) Entries() []Entry {
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// VerifyIntegrity recomputes every entry's hash and checks the chain
// linkage with a constant-time comparison of adjacent hashes.
func (j *Journal) VerifyIntegrity() error {
	var prevHash []byte
	for i, e := range j.entries {
		if e.Sequence != uint64(i) {
			return ledgererr.Wrap(ledgererr.KindIntegrity, ErrSequenceMismatch, fmt.Sprintf("entry %d has sequence %d", i, e.Sequence))
		}

		recomputed, err := entryHash(e.Transaction, e.Sequence, prevHash)
		if err != nil {
			return err
		}
		if subtle.ConstantTimeCompare(recomputed, e.Hash) != 1 {
			return ledgererr.Wrap(ledgererr.KindIntegrity, ErrIntegrityBroken, fmt.Sprintf("entry %d hash mismatch", i))
		}

		if i == 0 {
			if e.PrevHash != nil {
				return ledgererr.Wrap(ledgererr.KindIntegrity, ErrIntegrityBroken, "first entry must have no prev_hash")
			}
		} else if subtle.ConstantTimeCompare(e.PrevHash, prevHash) != 1 {
			return ledgererr.Wrap(ledgererr.KindIntegrity, ErrIntegrityBroken, fmt.Sprintf("entry %d prev_hash mismatch", i))
		}

		prevHash = e.Hash
	}
	return nil
}

// CanonicalLeaves returns the canonical JSON of every transaction, in
// sequence order — the leaf set merkle.BuildBatch expects. cmd/ledgerctl's
// "audit checkpoint" command feeds this straight into merkle.BuildBatch to
// attest a batch and records the resulting root as an audit event.
func (j *Journal) CanonicalLeaves() ([][]byte, error) {
	out := make([][]byte, len(j.entries))
	for i, e := range j.entries {
		canon, err := canonicalTxJSON(e.Transaction)
		if err != nil {
			return nil, err
		}
		out[i] = canon
	}
	return out, nil
}

func hashHex(h []byte) string {
	if h == nil {
		return ""
	}
	return hex.EncodeToString(h)
}
