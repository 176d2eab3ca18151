package gateway

import "errors"

var (
	// ErrFetch means the processor was unreachable or returned a failure.
	// The notification stays un-reconciled; the notifier may retry.
	ErrFetch = errors.New("payment fetch failed")

	// ErrNotFound means the processor does not know the payment id.
	ErrNotFound = errors.New("payment not found")
)
