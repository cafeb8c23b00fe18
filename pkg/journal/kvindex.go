package journal

import (
	"encoding/binary"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
)

// KVIndex is an optional accelerator over an embedded key-value store,
// giving O(1) GetByID/ByAccount lookups once a journal grows large.
// Adapted from the ledger store's KV key-prefix layout: big-endian
// sequence keys under a namespaced prefix. It is purely an optimization
// — VerifyIntegrity always replays from Journal.entries, never from this
// index, so a stale or corrupted index degrades lookups, not integrity.
type KVIndex struct {
	db dbm.DB
}

var (
	prefixByID      = []byte("idx:id:")      // + tx id -> be64(sequence)
	prefixByAccount = []byte("idx:account:") // + account name + be64(sequence) -> {1}
)

// NewKVIndex wraps an already-open cometbft-db handle (memdb, goleveldb,
// badgerdb, boltdb — any backend implementing dbm.DB).
func NewKVIndex(db dbm.DB) *KVIndex {
	return &KVIndex{db: db}
}

// NewMemKVIndex returns an in-process, non-persistent index — useful for
// tests and for hosts that only want the lookup speedup within a single
// run.
func NewMemKVIndex() *KVIndex {
	return &KVIndex{db: dbm.NewMemDB()}
}

// NewPersistentKVIndex opens (creating if absent) a GoLevelDB-backed
// index under dir, so the lookup acceleration survives process restarts
// instead of being rebuilt from a full journal replay every time.
func NewPersistentKVIndex(name, dir string) (*KVIndex, error) {
	db, err := dbm.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, fmt.Errorf("journal: open goleveldb index: %w", err)
	}
	return &KVIndex{db: db}, nil
}

func idKey(id string) []byte {
	return append(append([]byte{}, prefixByID...), []byte(id)...)
}

func accountKey(name string, sequence uint64) []byte {
	key := append(append([]byte{}, prefixByAccount...), []byte(name)...)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], sequence)
	return append(key, seqBuf[:]...)
}

// Put indexes entry by transaction id and by both account names.
func (idx *KVIndex) Put(entry Entry) error {
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], entry.Sequence)

	if err := idx.db.Set(idKey(entry.Transaction.ID), seqBuf[:]); err != nil {
		return fmt.Errorf("journal: index put by id: %w", err)
	}
	if err := idx.db.Set(accountKey(entry.Transaction.FromAccount, entry.Sequence), []byte{1}); err != nil {
		return fmt.Errorf("journal: index put from_account: %w", err)
	}
	if err := idx.db.Set(accountKey(entry.Transaction.ToAccount, entry.Sequence), []byte{1}); err != nil {
		return fmt.Errorf("journal: index put to_account: %w", err)
	}
	return nil
}

// LookupByID returns the sequence number for a transaction id, if indexed.
func (idx *KVIndex) LookupByID(id string) (uint64, bool) {
	b, err := idx.db.Get(idKey(id))
	if err != nil || len(b) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

// LookupByAccount scans the account-prefixed key range for name and
// returns every indexed sequence number, in ascending order.
func (idx *KVIndex) LookupByAccount(name string) ([]uint64, bool) {
	prefix := append(append([]byte{}, prefixByAccount...), []byte(name)...)
	start := prefix
	end := prefixEnd(prefix)

	it, err := idx.db.Iterator(start, end)
	if err != nil {
		return nil, false
	}
	defer it.Close()

	var seqs []uint64
	for ; it.Valid(); it.Next() {
		key := it.Key()
		// Skip keys of other accounts whose names merely start with name.
		if len(key) != len(prefix)+8 {
			continue
		}
		seqs = append(seqs, binary.BigEndian.Uint64(key[len(key)-8:]))
	}
	return seqs, true
}

// Close releases the underlying key-value store.
func (idx *KVIndex) Close() error {
	return idx.db.Close()
}

// prefixEnd returns the smallest key greater than every key with the
// given prefix, for use as an exclusive iterator upper bound.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff; unbounded
}
