package audit

import "errors"

// Sentinel errors for audit operations.
var (
	ErrChainBroken     = errors.New("audit: proof chain broken")
	ErrEmptyAuditKey   = errors.New("audit: audit key must not be empty")
	ErrUnknownEventID  = errors.New("audit: unknown event id")
	ErrFileIO          = errors.New("audit: file i/o error")
	ErrMalformedRecord = errors.New("audit: malformed chain record")
)
