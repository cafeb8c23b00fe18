package contracthook

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/finledger/finledger/pkg/asset"
	"github.com/finledger/finledger/pkg/audit"
	"github.com/finledger/finledger/pkg/ledger"
)

func newGasLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	reg := asset.NewRegistry()
	if err := reg.Register(asset.Asset{ID: "GAS", Kind: asset.KindNative, Metadata: asset.Metadata{Decimals: 0}}); err != nil {
		t.Fatalf("register GAS: %v", err)
	}
	l := ledger.New(reg)
	if err := l.CreateAccount(ledger.Account{Name: "payer", Currency: "GAS", CreatedAt: time.Now(), Type: ledger.TypeAsset}); err != nil {
		t.Fatalf("create payer: %v", err)
	}
	if err := l.CreateAccount(ledger.Account{Name: "gas-pool", Currency: "GAS", CreatedAt: time.Now(), Type: ledger.TypeRevenue}); err != nil {
		t.Fatalf("create gas-pool: %v", err)
	}
	return l
}

func TestRecordContractExecution_NoGasBilling(t *testing.T) {
	l := newGasLedger(t)
	chain := audit.NewProofChain()
	h := New(l, chain)

	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	if _, err := h.RecordContractExecution(addr, 21000, true); err != nil {
		t.Fatalf("RecordContractExecution: %v", err)
	}
	if chain.Len() != 1 {
		t.Fatalf("expected 1 audit entry, got %d", chain.Len())
	}
	payer, _ := l.Account("payer")
	if payer.Balance != 0 {
		t.Errorf("expected no ledger effect without gas billing, payer balance = %d", payer.Balance)
	}
}

func TestRecordContractExecution_WithGasBilling(t *testing.T) {
	l := newGasLedger(t)
	chain := audit.NewProofChain()
	h := New(l, chain).WithGasBilling("payer", "gas-pool", "GAS")

	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	if _, err := h.RecordContractExecution(addr, 1000, true); err != nil {
		t.Fatalf("RecordContractExecution: %v", err)
	}

	payer, _ := l.Account("payer")
	pool, _ := l.Account("gas-pool")
	if payer.Balance != -1000 {
		t.Errorf("payer balance = %d, want -1000", payer.Balance)
	}
	if pool.Balance != -1000 {
		t.Errorf("gas-pool balance = %d, want -1000 (revenue debited as destination)", pool.Balance)
	}
}

func TestRecordContractExecution_FailedCallSkipsBilling(t *testing.T) {
	l := newGasLedger(t)
	chain := audit.NewProofChain()
	h := New(l, chain).WithGasBilling("payer", "gas-pool", "GAS")

	addr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	if _, err := h.RecordContractExecution(addr, 1000, false); err != nil {
		t.Fatalf("RecordContractExecution: %v", err)
	}
	payer, _ := l.Account("payer")
	if payer.Balance != 0 {
		t.Errorf("failed execution should not bill gas, payer balance = %d", payer.Balance)
	}
}

func TestRecordStateChange(t *testing.T) {
	l := newGasLedger(t)
	chain := audit.NewProofChain()
	h := New(l, chain)

	addr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	hash := Keccak256([]byte("new-state"))

	entry, err := h.RecordStateChange(addr, hash)
	if err != nil {
		t.Fatalf("RecordStateChange: %v", err)
	}
	if entry.EventType != audit.EventStateChanged {
		t.Errorf("event type = %s, want state_changed", entry.EventType)
	}
}
