package ledger

import "errors"

// Sentinel errors for ledger operations.
var (
	ErrAccountExists        = errors.New("ledger: account already exists")
	ErrFromAccountNotFound  = errors.New("ledger: from account not found")
	ErrToAccountNotFound    = errors.New("ledger: to account not found")
	ErrCurrencyMismatch     = errors.New("ledger: currency mismatch")
	ErrDependencyNotFound   = errors.New("ledger: dependency not found")
	ErrSnapshotNotFound     = errors.New("ledger: rollback snapshot not found")
	ErrAlreadyProcessed     = errors.New("ledger: transaction already processed")
)
