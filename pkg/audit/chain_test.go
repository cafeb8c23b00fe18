package audit

import (
	"errors"
	"testing"
)

func TestAppendEvent_ChainsHashes(t *testing.T) {
	c := NewProofChain()
	first, err := c.AppendEvent(EventAccountCreated, []byte("alice"))
	if err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if first.PreviousHash != nil {
		t.Errorf("first entry should have no previous hash")
	}

	second, err := c.AppendEvent(EventTransactionProcessed, []byte("tx1"))
	if err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if string(second.PreviousHash) != string(first.Hash) {
		t.Errorf("second entry's previous hash should equal first entry's hash")
	}

	if err := c.VerifyChain(); err != nil {
		t.Errorf("VerifyChain: %v", err)
	}
}

func TestVerifyChain_DetectsTamper(t *testing.T) {
	c := NewProofChain()
	if _, err := c.AppendEvent(EventAccountCreated, []byte("alice")); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if _, err := c.AppendEvent(EventAccountCreated, []byte("bob")); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	c.entries[0].Data = []byte("mallory")

	err := c.VerifyChain()
	if !errors.Is(err, ErrChainBroken) {
		t.Fatalf("expected ErrChainBroken, got %v", err)
	}
}

func TestTipHash_EmptyChain(t *testing.T) {
	c := NewProofChain()
	if c.TipHash() != nil {
		t.Errorf("expected nil tip hash for empty chain")
	}
}
