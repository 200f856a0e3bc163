package session

import "errors"

// Sentinel errors for the transaction protocol.
var (
	// ErrTransactionOpen is returned when an operation requires no open
	// transaction: opening a second one, or editing while one is staged.
	ErrTransactionOpen = errors.New("a transaction is already open")

	// ErrNoTransaction is returned when resolving without an open transaction.
	ErrNoTransaction = errors.New("no open transaction")

	// ErrNoCandidate is returned when Accept is called before the batch
	// completed.
	ErrNoCandidate = errors.New("no completed candidate")

	// ErrResolved is returned when a transaction is accepted or discarded
	// more than once.
	ErrResolved = errors.New("transaction already resolved")

	// ErrNoRequests is returned when Propose finds nothing to dispatch.
	ErrNoRequests = errors.New("no patch requests queued")
)
