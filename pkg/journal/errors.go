package journal

import "errors"

// Sentinel errors for journal operations.
var (
	ErrIntegrityBroken   = errors.New("journal: integrity broken")
	ErrSequenceMismatch  = errors.New("journal: sequence mismatch")
	ErrFileIO            = errors.New("journal: file i/o error")
	ErrMalformedRecord   = errors.New("journal: malformed record")
	ErrEntryNotFound     = errors.New("journal: entry not found")
)
