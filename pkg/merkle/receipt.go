// Portable Merkle receipt: a proof that can be re-verified independently
// of the Tree that produced it, suitable for storing alongside a
// transaction or shipping to an external auditor.

package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Receipt is a portable Merkle inclusion proof.
//
// Verification invariants (fail-closed):
//  1. Start must be exactly 32 bytes
//  2. Anchor must be exactly 32 bytes
//  3. Each Entry.Hash must be exactly 32 bytes
//  4. Recomputing from Start through Entries must equal Anchor
type Receipt struct {
	Start      string         `json:"start"`      // leaf hash being proven, hex
	Anchor     string         `json:"anchor"`     // root reached by the proof, hex
	BatchIndex uint64         `json:"batchIndex"` // journal sequence of the batch this receipt anchors to
	Entries    []ReceiptEntry `json:"entries"`
}

// ReceiptEntry is one step of the Merkle path from Start to Anchor.
type ReceiptEntry struct {
	Hash string `json:"hash"`
	// Right: true means sibling is on the right, compute SHA256(current||sibling);
	// false means sibling is on the left, compute SHA256(sibling||current).
	Right bool `json:"right"`
}

// BinaryReceipt is the fixed-size binary form of Receipt.
type BinaryReceipt struct {
	Start      [32]byte
	Anchor     [32]byte
	BatchIndex uint64
	Entries    []BinaryReceiptEntry
}

type BinaryReceiptEntry struct {
	Hash  [32]byte
	Right bool
}

// Validate checks structure and recomputes the root (fail-closed).
func (r *Receipt) Validate() error {
	startHex, err := mustHex32Lower(r.Start, "receipt.start")
	if err != nil {
		return err
	}
	anchorHex, err := mustHex32Lower(r.Anchor, "receipt.anchor")
	if err != nil {
		return err
	}

	start, _ := hex.DecodeString(startHex)
	anchor, _ := hex.DecodeString(anchorHex)

	current := start
	for i, entry := range r.Entries {
		entryHex, err := mustHex32Lower(entry.Hash, fmt.Sprintf("receipt.entries[%d].hash", i))
		if err != nil {
			return err
		}
		sibling, _ := hex.DecodeString(entryHex)
		if entry.Right {
			current = receiptHashPair(current, sibling)
		} else {
			current = receiptHashPair(sibling, current)
		}
	}

	if !bytes.Equal(current, anchor) {
		return fmt.Errorf("%w: recomputed=%x, expected=%x", ErrInvalidProof, current, anchor)
	}
	return nil
}

// ComputeRoot recomputes the root without checking it against Anchor.
func (r *Receipt) ComputeRoot() ([32]byte, error) {
	startHex, err := mustHex32Lower(r.Start, "receipt.start")
	if err != nil {
		return [32]byte{}, err
	}
	start, _ := hex.DecodeString(startHex)

	current := start
	for i, entry := range r.Entries {
		entryHex, err := mustHex32Lower(entry.Hash, fmt.Sprintf("receipt.entries[%d].hash", i))
		if err != nil {
			return [32]byte{}, err
		}
		sibling, _ := hex.DecodeString(entryHex)
		if entry.Right {
			current = receiptHashPair(current, sibling)
		} else {
			current = receiptHashPair(sibling, current)
		}
	}

	var out [32]byte
	copy(out[:], current)
	return out, nil
}

// FromInclusionProof converts a Tree-produced InclusionProof into a
// portable Receipt.
func FromInclusionProof(p *InclusionProof, batchIndex uint64) *Receipt {
	r := &Receipt{
		Start:      p.LeafHash,
		Anchor:     p.MerkleRoot,
		BatchIndex: batchIndex,
		Entries:    make([]ReceiptEntry, len(p.Path)),
	}
	for i, node := range p.Path {
		r.Entries[i] = ReceiptEntry{Hash: node.Hash, Right: node.Position == Right}
	}
	return r
}

func (r *Receipt) ToBinary() (*BinaryReceipt, error) {
	startBytes, err := hex.DecodeString(r.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start hash: %w", err)
	}
	anchorBytes, err := hex.DecodeString(r.Anchor)
	if err != nil {
		return nil, fmt.Errorf("invalid anchor hash: %w", err)
	}

	br := &BinaryReceipt{
		BatchIndex: r.BatchIndex,
		Entries:    make([]BinaryReceiptEntry, len(r.Entries)),
	}
	copy(br.Start[:], startBytes)
	copy(br.Anchor[:], anchorBytes)

	for i, entry := range r.Entries {
		entryBytes, err := hex.DecodeString(entry.Hash)
		if err != nil {
			return nil, fmt.Errorf("invalid entry[%d] hash: %w", i, err)
		}
		copy(br.Entries[i].Hash[:], entryBytes)
		br.Entries[i].Right = entry.Right
	}
	return br, nil
}

func (br *BinaryReceipt) ToHex() *Receipt {
	r := &Receipt{
		Start:      hex.EncodeToString(br.Start[:]),
		Anchor:     hex.EncodeToString(br.Anchor[:]),
		BatchIndex: br.BatchIndex,
		Entries:    make([]ReceiptEntry, len(br.Entries)),
	}
	for i, entry := range br.Entries {
		r.Entries[i] = ReceiptEntry{Hash: hex.EncodeToString(entry.Hash[:]), Right: entry.Right}
	}
	return r
}

func (br *BinaryReceipt) Validate() error {
	current := br.Start[:]
	for _, entry := range br.Entries {
		if entry.Right {
			current = receiptHashPair(current, entry.Hash[:])
		} else {
			current = receiptHashPair(entry.Hash[:], current)
		}
	}
	if !bytes.Equal(current, br.Anchor[:]) {
		return fmt.Errorf("%w: recomputed=%x, expected=%x", ErrInvalidProof, current, br.Anchor)
	}
	return nil
}

func (r *Receipt) ToJSON() ([]byte, error) { return json.Marshal(r) }

func ReceiptFromJSON(data []byte) (*Receipt, error) {
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func receiptHashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

func mustHex32Lower(s, label string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%s: empty", label)
	}
	if len(s) != 64 {
		return "", fmt.Errorf("%s: expected 64 hex chars (32 bytes), got len=%d", label, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%s: invalid hex: %w", label, err)
	}
	return s, nil
}
