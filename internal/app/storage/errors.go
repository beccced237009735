package storage

import "errors"

// Sentinel errors shared by all store implementations so callers can branch
// with errors.Is regardless of the backing engine.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrConflict      = errors.New("concurrent modification conflict")
)
