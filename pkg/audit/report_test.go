package audit

import (
	"testing"
	"time"

	"github.com/finledger/finledger/pkg/asset"
	"github.com/finledger/finledger/pkg/journal"
	"github.com/finledger/finledger/pkg/ledger"
	"github.com/finledger/finledger/pkg/txn"
)

func newUSDLedgerAndJournal(t *testing.T) (*ledger.Ledger, *journal.Journal) {
	t.Helper()
	reg := asset.NewRegistry()
	if err := reg.Register(asset.Asset{ID: "USD", Kind: asset.KindNative, Metadata: asset.Metadata{Decimals: 2}}); err != nil {
		t.Fatalf("register USD: %v", err)
	}
	l := ledger.New(reg)
	if err := l.CreateAccount(ledger.Account{Name: "alice", Currency: "USD", CreatedAt: time.Now(), Type: ledger.TypeAsset}); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if err := l.CreateAccount(ledger.Account{Name: "bob", Currency: "USD", CreatedAt: time.Now(), Type: ledger.TypeAsset}); err != nil {
		t.Fatalf("create bob: %v", err)
	}
	return l, journal.New()
}

func applyTransfer(t *testing.T, l *ledger.Ledger, j *journal.Journal, from, to string, amount int64) *txn.Transaction {
	t.Helper()
	tx, err := txn.New(time.Now().Unix(), amount, "USD", from, to, "", "")
	if err != nil {
		t.Fatalf("txn.New: %v", err)
	}
	if err := l.ProcessTransaction(tx); err != nil {
		t.Fatalf("ProcessTransaction: %v", err)
	}
	if _, err := j.Append(tx); err != nil {
		t.Fatalf("Append: %v", err)
	}
	return tx
}

func TestAudit_CleanLedger(t *testing.T) {
	l, j := newUSDLedgerAndJournal(t)
	applyTransfer(t, l, j, "alice", "bob", 500)
	applyTransfer(t, l, j, "bob", "alice", 200)

	report, err := Audit(l, j, []byte("audit-key"))
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if !report.IsValid() {
		t.Fatalf("expected valid report, got %+v", report)
	}
	if report.TotalTransactions != 2 {
		t.Errorf("total_transactions = %d, want 2", report.TotalTransactions)
	}
}

func TestAudit_EmptyAuditKey(t *testing.T) {
	l, j := newUSDLedgerAndJournal(t)
	if _, err := Audit(l, j, nil); err != ErrEmptyAuditKey {
		t.Fatalf("expected ErrEmptyAuditKey, got %v", err)
	}
}

func TestAudit_DetectsOrphan(t *testing.T) {
	l, j := newUSDLedgerAndJournal(t)
	applyTransfer(t, l, j, "alice", "bob", 500)

	ghost, err := txn.New(time.Now().Unix(), 10, "USD", "alice", "ghost", "", "")
	if err != nil {
		t.Fatalf("txn.New: %v", err)
	}
	if _, err := j.Append(ghost); err != nil {
		t.Fatalf("Append: %v", err)
	}

	report, err := Audit(l, j, []byte("audit-key"))
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if len(report.OrphanIDs) != 1 || report.OrphanIDs[0] != ghost.ID {
		t.Fatalf("expected orphan %s, got %v", ghost.ID, report.OrphanIDs)
	}
	if report.IsValid() {
		t.Error("report should be invalid with an orphan present")
	}
}

func TestAudit_BalanceDiscrepancyAnnotatesAccountType(t *testing.T) {
	reg := asset.NewRegistry()
	if err := reg.Register(asset.Asset{ID: "USD", Kind: asset.KindNative, Metadata: asset.Metadata{Decimals: 2}}); err != nil {
		t.Fatalf("register USD: %v", err)
	}
	l := ledger.New(reg)
	if err := l.CreateAccount(ledger.Account{Name: "alice", Currency: "USD", CreatedAt: time.Now(), Type: ledger.TypeAsset}); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if err := l.CreateAccount(ledger.Account{Name: "revenue", Currency: "USD", CreatedAt: time.Now(), Type: ledger.TypeRevenue}); err != nil {
		t.Fatalf("create revenue: %v", err)
	}
	j := journal.New()
	applyTransfer(t, l, j, "alice", "revenue", 500)

	report, err := Audit(l, j, []byte("audit-key"))
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if len(report.BalanceDiscrepancies) == 0 {
		t.Fatalf("expected a discrepancy on the revenue account under the raw-sign replay convention")
	}
	found := false
	for _, d := range report.BalanceDiscrepancies {
		if d.Account == "revenue" {
			found = true
			if d.AccountType != ledger.TypeRevenue {
				t.Errorf("account_type = %q, want revenue", d.AccountType)
			}
		}
	}
	if !found {
		t.Fatalf("expected a discrepancy entry for revenue, got %+v", report.BalanceDiscrepancies)
	}
}

func TestAudit_DuplicateIDDetection(t *testing.T) {
	l, j := newUSDLedgerAndJournal(t)
	tx := applyTransfer(t, l, j, "alice", "bob", 100)
	j.Append(tx) // append the same transaction object a second time

	report, err := Audit(l, j, []byte("audit-key"))
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if len(report.DuplicateIDs) != 1 || report.DuplicateIDs[0] != tx.ID {
		t.Fatalf("expected duplicate %s, got %v", tx.ID, report.DuplicateIDs)
	}
}
