package storage

import "errors"

var (
	// ErrNotFound indicates no configuration exists for the chat
	ErrNotFound = errors.New("chat config not found")

	// ErrStorageUnavailable indicates a retryable storage failure; the
	// caller must not assume the write happened
	ErrStorageUnavailable = errors.New("storage unavailable")
)
