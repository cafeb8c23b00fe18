package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/finledger/finledger/pkg/ledgererr"
	"github.com/finledger/finledger/pkg/storage"
	"github.com/finledger/finledger/pkg/txn"
)

// SavePlain writes one canonical-JSON transaction per line, in sequence
// order. The file records no hash chain of its own — LoadPlain rebuilds
// one by replaying every line through Append, so a hand-edited plaintext
// file is simply a different (and unattested) journal, never a tampered
// one that passes VerifyIntegrity.
func (j *Journal) SavePlain(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return ledgererr.Wrap(ledgererr.KindStorage, ErrFileIO, err.Error())
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range j.entries {
		canon, err := e.Transaction.CanonicalJSON()
		if err != nil {
			return err
		}
		if _, err := w.Write(canon); err != nil {
			return ledgererr.Wrap(ledgererr.KindStorage, ErrFileIO, err.Error())
		}
		if err := w.WriteByte('\n'); err != nil {
			return ledgererr.Wrap(ledgererr.KindStorage, ErrFileIO, err.Error())
		}
	}
	if err := w.Flush(); err != nil {
		return ledgererr.Wrap(ledgererr.KindStorage, ErrFileIO, err.Error())
	}
	j.attested = false
	return nil
}

// LoadPlain reads a file written by SavePlain into a fresh Journal,
// re-deriving the hash chain via Append as each line is replayed. Blank
// lines are skipped. A malformed line is reported with its line number,
// UNLESS it is the last line in the file: a writer that crashes mid-
// Append leaves a torn final line behind, and per spec §5 that truncated
// tail is dropped silently, replaying everything that parsed cleanly
// before it, rather than failing the whole load.
func LoadPlain(path string, opts ...Option) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.KindStorage, ErrFileIO, err.Error())
	}

	j := New(opts...)
	if err := replayLines(j, data); err != nil {
		return nil, err
	}
	j.attested = false
	return j, nil
}

// replayLines parses each newline-framed line in data and replays it
// through j.Append, tolerating a malformed or truncated trailing line.
func replayLines(j *Journal, data []byte) error {
	lines := bytes.Split(data, []byte("\n"))
	for i, raw := range lines {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		t, err := txn.FromCanonicalJSON(line)
		if err != nil {
			if isTrailingLine(lines, i) {
				break
			}
			return ledgererr.Wrap(ledgererr.KindStorage, ErrMalformedRecord, fmt.Sprintf("line %d: %v", i+1, err))
		}
		if _, err := j.Append(t); err != nil {
			return fmt.Errorf("journal: replay line %d: %w", i+1, err)
		}
	}
	return nil
}

// isTrailingLine reports whether every line after idx is blank, meaning
// the line at idx is the last piece of content in the file.
func isTrailingLine(lines [][]byte, idx int) bool {
	for _, raw := range lines[idx+1:] {
		if len(bytes.TrimSpace(raw)) != 0 {
			return false
		}
	}
	return true
}

// SaveEncrypted serializes every transaction as newline-framed canonical
// JSON, encrypts the whole blob under password, and writes the resulting
// base64 envelope to path. Unlike SavePlain, this is the journal's
// attested form: a load that succeeds proves the bytes are exactly what
// was written, via the AEAD tag, not merely that some hash chain replays.
func (j *Journal) SaveEncrypted(path string, password []byte, params storage.KDFParams) error {
	var buf bytes.Buffer
	for _, e := range j.entries {
		canon, err := e.Transaction.CanonicalJSON()
		if err != nil {
			return err
		}
		buf.Write(canon)
		buf.WriteByte('\n')
	}

	envelope, err := storage.EncryptWithPassword(password, buf.Bytes(), params)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(envelope), 0o600); err != nil {
		return ledgererr.Wrap(ledgererr.KindStorage, ErrFileIO, err.Error())
	}
	j.attested = true
	return nil
}

// LoadEncrypted decrypts path under password, then replays the contained
// transactions through Append exactly as LoadPlain does, with the same
// tolerance for a torn trailing line. On success the returned Journal is
// marked attested: its bytes authenticated under the caller's password
// before a single transaction was trusted.
func LoadEncrypted(path string, password []byte, params storage.KDFParams, opts ...Option) (*Journal, error) {
	envelope, err := os.ReadFile(path)
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.KindStorage, ErrFileIO, err.Error())
	}

	plaintext, err := storage.DecryptWithPassword(password, string(envelope), params)
	if err != nil {
		return nil, err
	}

	j := New(opts...)
	if err := replayLines(j, plaintext); err != nil {
		return nil, err
	}
	j.attested = true
	return j, nil
}
