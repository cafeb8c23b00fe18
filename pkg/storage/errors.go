package storage

import "errors"

// Sentinel errors for encrypted persistence.
var (
	ErrAuthenticationFailed = errors.New("storage: authentication failed")
	ErrInvalidKeyFormat     = errors.New("storage: invalid key format")
	ErrFileIO               = errors.New("storage: file i/o error")
)
