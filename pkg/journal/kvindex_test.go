package journal

import (
	"testing"

	"github.com/finledger/finledger/pkg/txn"
)

func makeEntry(t *testing.T, sequence uint64, from, to string) Entry {
	t.Helper()
	tx, err := txn.New(int64(sequence), 100, "USD", from, to, "", "")
	if err != nil {
		t.Fatalf("txn.New: %v", err)
	}
	return Entry{Transaction: tx, Sequence: sequence, Hash: []byte{byte(sequence)}}
}

func TestKVIndex_PutAndLookupByID(t *testing.T) {
	idx := NewMemKVIndex()
	e := makeEntry(t, 0, "alice", "bob")

	if err := idx.Put(e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	seq, ok := idx.LookupByID(e.Transaction.ID)
	if !ok {
		t.Fatal("expected LookupByID to find the entry")
	}
	if seq != 0 {
		t.Errorf("sequence = %d, want 0", seq)
	}
}

func TestKVIndex_LookupByID_Unknown(t *testing.T) {
	idx := NewMemKVIndex()
	if _, ok := idx.LookupByID("does-not-exist"); ok {
		t.Error("expected LookupByID to report not found")
	}
}

func TestKVIndex_LookupByAccount(t *testing.T) {
	idx := NewMemKVIndex()
	entries := []Entry{
		makeEntry(t, 0, "alice", "bob"),
		makeEntry(t, 1, "bob", "carol"),
		makeEntry(t, 2, "alice", "carol"),
	}
	for _, e := range entries {
		if err := idx.Put(e); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	seqs, ok := idx.LookupByAccount("alice")
	if !ok {
		t.Fatal("expected LookupByAccount to find entries")
	}
	if len(seqs) != 2 {
		t.Fatalf("got %d sequences for alice, want 2", len(seqs))
	}

	bobSeqs, ok := idx.LookupByAccount("bob")
	if !ok || len(bobSeqs) != 2 {
		t.Fatalf("got %v for bob, want 2 entries found=%v", bobSeqs, ok)
	}
}

func TestKVIndex_Close(t *testing.T) {
	idx := NewMemKVIndex()
	if err := idx.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestJournal_WithIndex_AcceleratesLookups(t *testing.T) {
	idx := NewMemKVIndex()
	j := New(WithIndex(idx))

	tx1, err := txn.New(1000, 100, "USD", "alice", "bob", "", "")
	if err != nil {
		t.Fatalf("txn.New: %v", err)
	}
	if _, err := j.Append(tx1); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entry, err := j.GetByID(tx1.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if entry.Transaction.ID != tx1.ID {
		t.Errorf("got transaction %s, want %s", entry.Transaction.ID, tx1.ID)
	}

	byAccount := j.ByAccount("alice")
	if len(byAccount) != 1 {
		t.Fatalf("ByAccount(alice) = %d entries, want 1", len(byAccount))
	}
}
