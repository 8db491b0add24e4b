package store

import "errors"

var (
	ErrEntryNotFound = errors.New("no entry under the key")
	ErrEntryCorrupt  = errors.New("entry failed validation")
	ErrStoreClosed   = errors.New("store is closed")
	ErrInvalidName   = errors.New("invalid store name")
)
