package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/finledger/finledger/pkg/storage"
	"github.com/finledger/finledger/pkg/txn"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j := New()
	for i, pair := range [][2]string{{"alice", "bob"}, {"bob", "carol"}} {
		tx, err := txn.New(int64(1000+i), int64(100*(i+1)), "USD", pair[0], pair[1], "", "")
		if err != nil {
			t.Fatalf("txn.New: %v", err)
		}
		if _, err := j.Append(tx); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return j
}

func TestSaveLoadPlain_RoundTrip(t *testing.T) {
	j := newTestJournal(t)
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	if err := j.SavePlain(path); err != nil {
		t.Fatalf("SavePlain: %v", err)
	}

	loaded, err := LoadPlain(path)
	if err != nil {
		t.Fatalf("LoadPlain: %v", err)
	}
	if loaded.Attested() {
		t.Errorf("plaintext load must not be attested")
	}
	if loaded.Len() != j.Len() {
		t.Fatalf("loaded %d entries, want %d", loaded.Len(), j.Len())
	}
	if err := loaded.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity on replayed journal: %v", err)
	}
}

func TestLoadPlain_SkipsBlankLines(t *testing.T) {
	j := newTestJournal(t)
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	if err := j.SavePlain(path); err != nil {
		t.Fatalf("SavePlain: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data = append(data, []byte("\n\n")...)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := LoadPlain(path)
	if err != nil {
		t.Fatalf("LoadPlain: %v", err)
	}
	if loaded.Len() != j.Len() {
		t.Fatalf("loaded %d entries, want %d", loaded.Len(), j.Len())
	}
}

// TestLoadPlain_TrailingMalformedLineIsTruncatedTail covers the crash-
// resilience case from spec §5: a writer that dies mid-Append leaves a
// torn final line. A load must not fail outright — it replays every
// entry before the torn line and silently drops the tail.
func TestLoadPlain_TrailingMalformedLineIsTruncatedTail(t *testing.T) {
	j := newTestJournal(t)
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	if err := j.SavePlain(path); err != nil {
		t.Fatalf("SavePlain: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data = append(data, []byte(`{"id":"torn`)...) // no closing brace, no trailing newline
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := LoadPlain(path)
	if err != nil {
		t.Fatalf("LoadPlain should tolerate a torn trailing line, got error: %v", err)
	}
	if loaded.Len() != j.Len() {
		t.Fatalf("loaded %d entries, want %d (torn tail should be dropped)", loaded.Len(), j.Len())
	}
	if err := loaded.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity on truncated replay: %v", err)
	}
}

// TestLoadPlain_MalformedLine_MidFile covers the non-trailing case: a
// malformed line with well-formed content after it is real corruption,
// not a torn write, and must fail loudly.
func TestLoadPlain_MalformedLine_MidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	content := "not json\n" + `{"id":"deadbeef","timestamp":1,"amount":1,"currency":"USD","from_account":"alice","to_account":"bob","memo":null,"nonce":"00","signature":null,"integrity_hmac":null,"depends_on":null}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := LoadPlain(path)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestSaveLoadEncrypted_RoundTrip(t *testing.T) {
	j := newTestJournal(t)
	path := filepath.Join(t.TempDir(), "journal.enc")
	params := storage.DefaultKDFParams()
	password := []byte("hunter2")

	if err := j.SaveEncrypted(path, password, params); err != nil {
		t.Fatalf("SaveEncrypted: %v", err)
	}
	if !j.Attested() {
		t.Errorf("journal should be marked attested after SaveEncrypted")
	}

	loaded, err := LoadEncrypted(path, password, params)
	if err != nil {
		t.Fatalf("LoadEncrypted: %v", err)
	}
	if !loaded.Attested() {
		t.Errorf("loaded journal should be marked attested")
	}
	if loaded.Len() != j.Len() {
		t.Fatalf("loaded %d entries, want %d", loaded.Len(), j.Len())
	}
	if err := loaded.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity on replayed journal: %v", err)
	}
}

func TestLoadEncrypted_WrongPassword(t *testing.T) {
	j := newTestJournal(t)
	path := filepath.Join(t.TempDir(), "journal.enc")
	params := storage.DefaultKDFParams()

	if err := j.SaveEncrypted(path, []byte("right"), params); err != nil {
		t.Fatalf("SaveEncrypted: %v", err)
	}

	_, err := LoadEncrypted(path, []byte("wrong"), params)
	if !errors.Is(err, storage.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}
