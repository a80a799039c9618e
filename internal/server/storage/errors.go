package storage

import "errors"

// Common storage errors
var (
	// ErrEntityNotFound indicates that the metadata record was not found
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEntityExists indicates that a record with this id already exists
	ErrEntityExists = errors.New("entity already exists")

	// ErrEntityModified indicates that the record's vector clock changed
	// between the read at the start of the exchange and the commit.
	// Retryable: the caller must re-read and rerun the exchange.
	ErrEntityModified = errors.New("entity modified concurrently")

	// ErrOperationExists indicates that an operation with the same
	// (timestamp, actorId) dedup key is already in the log
	ErrOperationExists = errors.New("operation already logged")

	// ErrStorageClosed indicates that the storage has been closed
	ErrStorageClosed = errors.New("storage is closed")
)
