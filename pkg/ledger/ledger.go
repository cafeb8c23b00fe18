// Package ledger implements the accounting kernel: typed accounts,
// balance update rules, transaction application with dependency
// checking, and rollback snapshots.
//
// CONCURRENCY: Ledger assumes single-writer access, per spec.md §5. It
// does not synchronize its internal maps. A caller sharing one Ledger
// across goroutines must wrap it with its own synchronization; parallel
// use is only safe across independent Ledger instances.
package ledger

import (
	"fmt"

	"github.com/finledger/finledger/pkg/asset"
	"github.com/finledger/finledger/pkg/ledgererr"
	"github.com/finledger/finledger/pkg/txn"
)

// snapshot captures one account's balance before a transaction mutates
// it, so process_with_rollback / Rollback can restore it exactly.
type snapshot struct {
	name    string
	balance int64
}

// Ledger holds accounts, the asset registry, the processed-transaction
// set, and pending rollback snapshots keyed by transaction id.
type Ledger struct {
	accounts  map[string]*Account
	assets    *asset.Registry
	processed map[string]bool
	snapshots map[string][]snapshot
}

// New returns an empty Ledger backed by registry.
func New(registry *asset.Registry) *Ledger {
	return &Ledger{
		accounts:  make(map[string]*Account),
		assets:    registry,
		processed: make(map[string]bool),
		snapshots: make(map[string][]snapshot),
	}
}

// Assets returns the ledger's asset registry.
func (l *Ledger) Assets() *asset.Registry { return l.assets }

// CreateAccount registers a new account; fails if name is already taken.
func (l *Ledger) CreateAccount(a Account) error {
	if _, exists := l.accounts[a.Name]; exists {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrAccountExists, a.Name)
	}
	acc := a
	l.accounts[a.Name] = &acc
	return nil
}

// Account returns a copy of the named account.
func (l *Ledger) Account(name string) (Account, bool) {
	a, ok := l.accounts[name]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// Accounts returns a copy of every account, in no particular order.
func (l *Ledger) Accounts() []Account {
	out := make([]Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, *a)
	}
	return out
}

// Processed reports whether id has already been applied.
func (l *Ledger) Processed(id string) bool { return l.processed[id] }

// ProcessTransaction applies t per spec.md §4.3 steps 1-5: dependency
// check, asset validation, account/currency checks, credit the source
// and debit the destination, then mark t processed.
func (l *Ledger) ProcessTransaction(t *txn.Transaction) error {
	if t.DependsOn != nil {
		if !l.processed[*t.DependsOn] {
			return ledgererr.Wrap(ledgererr.KindValidation, ErrDependencyNotFound, *t.DependsOn)
		}
	}

	if err := l.assets.ValidateTx(t.Currency, t.Amount); err != nil {
		return err
	}

	from, ok := l.accounts[t.FromAccount]
	if !ok {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrFromAccountNotFound, t.FromAccount)
	}
	to, ok := l.accounts[t.ToAccount]
	if !ok {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrToAccountNotFound, t.ToAccount)
	}
	if from.Currency != t.Currency {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrCurrencyMismatch,
			fmt.Sprintf("%s has currency %s, transaction is %s", from.Name, from.Currency, t.Currency))
	}
	if to.Currency != t.Currency {
		return ledgererr.Wrap(ledgererr.KindValidation, ErrCurrencyMismatch,
			fmt.Sprintf("%s has currency %s, transaction is %s", to.Name, to.Currency, t.Currency))
	}

	from.Balance += creditDelta(from.Type, t.Amount)
	to.Balance += debitDelta(to.Type, t.Amount)
	l.processed[t.ID] = true
	return nil
}

// ProcessWithRollback snapshots the affected accounts' balances before
// applying t. On failure, balances are restored from the snapshot and
// the original error is returned; on success, the snapshot remains
// available until Commit(t.ID) removes it.
func (l *Ledger) ProcessWithRollback(t *txn.Transaction) error {
	snaps := l.captureSnapshot(t.FromAccount, t.ToAccount)

	if err := l.ProcessTransaction(t); err != nil {
		l.restoreSnapshot(snaps)
		return err
	}

	l.snapshots[t.ID] = snaps
	return nil
}

func (l *Ledger) captureSnapshot(names ...string) []snapshot {
	out := make([]snapshot, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if a, ok := l.accounts[name]; ok {
			out = append(out, snapshot{name: name, balance: a.Balance})
		}
	}
	return out
}

func (l *Ledger) restoreSnapshot(snaps []snapshot) {
	for _, s := range snaps {
		if a, ok := l.accounts[s.name]; ok {
			a.Balance = s.balance
		}
	}
}

// Commit drops the rollback snapshot for t.ID, finalizing the transaction.
func (l *Ledger) Commit(id string) {
	delete(l.snapshots, id)
}

// Rollback restores every snapshotted account balance for id, removes id
// from the processed set, and drops the snapshot. Fails with
// SnapshotNotFound if id has no pending snapshot.
func (l *Ledger) Rollback(id string) error {
	snaps, ok := l.snapshots[id]
	if !ok {
		return ledgererr.Wrap(ledgererr.KindRollback, ErrSnapshotNotFound, id)
	}
	l.restoreSnapshot(snaps)
	delete(l.processed, id)
	delete(l.snapshots, id)
	return nil
}

// VerifyDoubleEntry returns true iff Σ(asset) = Σ(liability) + Σ(equity)
// + Σ(revenue) − Σ(expense) across all accounts. This is the accounting
// correctness gate.
func (l *Ledger) VerifyDoubleEntry() bool {
	var assetsSum, liabilitiesSum, equitySum, revenueSum, expenseSum int64
	for _, a := range l.accounts {
		switch a.Type {
		case TypeAsset:
			assetsSum += a.Balance
		case TypeLiability:
			liabilitiesSum += a.Balance
		case TypeEquity:
			equitySum += a.Balance
		case TypeRevenue:
			revenueSum += a.Balance
		case TypeExpense:
			expenseSum += a.Balance
		}
	}
	return assetsSum == liabilitiesSum+equitySum+revenueSum-expenseSum
}

// TrialBalance enumerates all accounts as trial-balance rows.
func (l *Ledger) TrialBalance() []TrialBalanceRow {
	rows := make([]TrialBalanceRow, 0, len(l.accounts))
	for _, a := range l.accounts {
		rows = append(rows, TrialBalanceRow{
			Name:     a.Name,
			Type:     a.Type,
			Balance:  a.Balance,
			Currency: a.Currency,
		})
	}
	return rows
}
