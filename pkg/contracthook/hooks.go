// Package contracthook exposes the reporting surface spec.md §4.8
// describes: an external execution engine calls into this package to
// record what it did, and those calls feed the AuditProofChain (always)
// and, when gas billing is configured, the ledger itself (the gas-pool
// transaction only).
package contracthook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/finledger/finledger/pkg/audit"
	"github.com/finledger/finledger/pkg/ledger"
	"github.com/finledger/finledger/pkg/txn"
)

// ContractEvent is the data payload recorded for a contract execution.
// It is persisted only to the AuditProofChain, never to the ledger
// directly — the ledger only ever sees the optional gas-billing
// transaction spec.md §4.8 describes.
type ContractEvent struct {
	Address  common.Address `json:"address"`
	GasUsed  uint64         `json:"gas_used"`
	Success  bool           `json:"success"`
	Currency string         `json:"currency,omitempty"`
}

// StateChangeEvent is the data payload recorded for a state change.
type StateChangeEvent struct {
	Address   common.Address `json:"address"`
	StateHash [32]byte       `json:"state_hash"`
}

// Hooks bundles the ledger and audit chain an external execution engine
// reports into. GasPoolAccount and PayerAccount are both optional; gas
// billing only fires when both are set.
type Hooks struct {
	Ledger         *ledger.Ledger
	Chain          *audit.ProofChain
	GasPoolAccount string
	PayerAccount   string
	Currency       string
}

// New returns a Hooks with no gas billing configured.
func New(l *ledger.Ledger, chain *audit.ProofChain) *Hooks {
	return &Hooks{Ledger: l, Chain: chain}
}

// WithGasBilling configures gas billing: gas used on a successful
// execution is moved from payer to the gas pool by one ledger
// transaction, one unit of currency per unit of gas.
func (h *Hooks) WithGasBilling(payerAccount, gasPoolAccount, currency string) *Hooks {
	h.PayerAccount = payerAccount
	h.GasPoolAccount = gasPoolAccount
	h.Currency = currency
	return h
}

// RecordContractExecution appends a contract_executed event to the audit
// chain and, if gas billing is configured and the call
// succeeded, applies a ledger transaction from the payer to the gas pool
// for gasUsed units of Currency.
func (h *Hooks) RecordContractExecution(address common.Address, gasUsed uint64, success bool) (*audit.AuditEntry, error) {
	event := ContractEvent{Address: address, GasUsed: gasUsed, Success: success, Currency: h.Currency}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("contracthook: marshal event: %w", err)
	}

	entry, err := h.Chain.AppendEvent(audit.EventContractExecuted, data)
	if err != nil {
		return nil, err
	}

	if success && h.GasPoolAccount != "" && h.PayerAccount != "" && gasUsed > 0 {
		if err := h.billGas(gasUsed); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

func (h *Hooks) billGas(gasUsed uint64) error {
	tx, err := txn.New(time.Now().Unix(), int64(gasUsed), h.Currency, h.PayerAccount, h.GasPoolAccount, "gas", "")
	if err != nil {
		return fmt.Errorf("contracthook: build gas transaction: %w", err)
	}
	return h.Ledger.ProcessTransaction(tx)
}

// RecordStateChange appends a state_changed event to the audit chain.
func (h *Hooks) RecordStateChange(address common.Address, stateHash [32]byte) (*audit.AuditEntry, error) {
	event := StateChangeEvent{Address: address, StateHash: stateHash}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("contracthook: marshal event: %w", err)
	}
	return h.Chain.AppendEvent(audit.EventStateChanged, data)
}

// Keccak256 hashes data the way an EVM-compatible execution engine
// would, for callers deriving a state hash to pass to RecordStateChange.
func Keccak256(data []byte) [32]byte {
	return crypto.Keccak256Hash(data)
}
