package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestChain(t *testing.T) *ProofChain {
	t.Helper()
	c := NewProofChain()
	if _, err := c.AppendEvent(EventAccountCreated, []byte(`{"name":"alice"}`)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if _, err := c.AppendEvent(EventTransactionProcessed, []byte(`{"id":"abc123"}`)); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	return c
}

func TestSaveLoadChain_RoundTrip(t *testing.T) {
	c := newTestChain(t)
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadChain(path)
	if err != nil {
		t.Fatalf("LoadChain: %v", err)
	}
	if loaded.Len() != c.Len() {
		t.Fatalf("loaded %d entries, want %d", loaded.Len(), c.Len())
	}
	if err := loaded.VerifyChain(); err != nil {
		t.Errorf("VerifyChain on replayed chain: %v", err)
	}
	if string(loaded.Entries()[0].Data) != `{"name":"alice"}` {
		t.Errorf("unexpected data for entry 0: %s", loaded.Entries()[0].Data)
	}
}

func TestLoadChain_MissingFileIsEmptyChain(t *testing.T) {
	c, err := LoadChain(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("LoadChain: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty chain, got %d entries", c.Len())
	}
}

func TestLoadChain_TrailingMalformedLineIsTruncatedTail(t *testing.T) {
	c := newTestChain(t)
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data = append(data, []byte(`{"timestamp":`)...)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := LoadChain(path)
	if err != nil {
		t.Fatalf("LoadChain should tolerate a torn trailing line, got: %v", err)
	}
	if loaded.Len() != c.Len() {
		t.Fatalf("loaded %d entries, want %d", loaded.Len(), c.Len())
	}
}

func TestLoadChain_MalformedLine_MidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	content := "not json\n" + `{"timestamp":1,"event_type":"account_created","data":null}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := LoadChain(path)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}
