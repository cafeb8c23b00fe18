package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/finledger/finledger/pkg/ledgererr"
)

// chainRecord is the on-disk shape of one AuditEntry: only the inputs to
// eventHash, never the hash itself, so loading always recomputes rather
// than trusts.
type chainRecord struct {
	Timestamp int64     `json:"timestamp"`
	EventType EventKind `json:"event_type"`
	Data      []byte    `json:"data"`
}

// Save writes the chain as newline-framed JSON, one record per event, in
// the same plaintext line-per-record shape pkg/journal uses for
// SavePlain.
func (c *ProofChain) Save(path string) error {
	var buf bytes.Buffer
	for _, e := range c.entries {
		line, err := json.Marshal(chainRecord{Timestamp: e.Timestamp, EventType: e.EventType, Data: e.Data})
		if err != nil {
			return fmt.Errorf("audit: marshal chain record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return ledgererr.Wrap(ledgererr.KindStorage, ErrFileIO, err.Error())
	}
	return nil
}

// LoadChain reads a chain file written by Save, replaying each record
// through Replay to rebuild the hash chain from scratch. A missing file
// is treated as an empty chain, not an error, so a fresh data directory
// needs no prior bootstrap step. As with pkg/journal's LoadPlain, a
// malformed trailing line is tolerated as a torn write and dropped; a
// malformed line with content after it is a hard error.
func LoadChain(path string) (*ProofChain, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewProofChain(), nil
	}
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.KindStorage, ErrFileIO, err.Error())
	}

	c := NewProofChain()
	lines := bytes.Split(data, []byte("\n"))
	for i, raw := range lines {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		var rec chainRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			if isTrailingLine(lines, i) {
				break
			}
			return nil, ledgererr.Wrap(ledgererr.KindStorage, ErrMalformedRecord, fmt.Sprintf("line %d: %v", i+1, err))
		}
		if _, err := c.Replay(rec.Timestamp, rec.EventType, rec.Data); err != nil {
			return nil, fmt.Errorf("audit: replay line %d: %w", i+1, err)
		}
	}
	return c, nil
}

func isTrailingLine(lines [][]byte, idx int) bool {
	for _, raw := range lines[idx+1:] {
		if len(bytes.TrimSpace(raw)) != 0 {
			return false
		}
	}
	return true
}
