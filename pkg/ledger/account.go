package ledger

import "time"

// AccountType determines the sign convention for debit/credit, per
// spec.md §4.3. Modeled as a closed tagged variant, not subtyping.
type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeRevenue   AccountType = "revenue"
	TypeExpense   AccountType = "expense"
)

// Account is a named typed holder of a balance for one asset.
type Account struct {
	Name      string
	Currency  string
	CreatedAt time.Time
	Type      AccountType
	Balance   int64
}

// TrialBalanceRow is one line of a trial balance export.
type TrialBalanceRow struct {
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	Balance  int64       `json:"balance"`
	Currency string      `json:"currency"`
}

// debitDelta returns the signed change Debit(account, x) applies to
// Balance: positive for asset/expense, negative for liability/equity/
// revenue.
func debitDelta(t AccountType, x int64) int64 {
	switch t {
	case TypeAsset, TypeExpense:
		return x
	default:
		return -x
	}
}

// creditDelta is the inverse of debitDelta.
func creditDelta(t AccountType, x int64) int64 {
	return -debitDelta(t, x)
}
