package credential

import "errors"

var (
	// ErrAuthUnavailable means no credential exists and no fallback static
	// token is configured. Fatal for any outbound call attempted that cycle.
	ErrAuthUnavailable = errors.New("no access credential available")

	// ErrRefreshFailed means the OAuth endpoint rejected or timed out the
	// refresh. Recoverable; the next Token call retries lazily.
	ErrRefreshFailed = errors.New("credential refresh failed")

	// ErrStoreUnreadable means the persisted record could not be read.
	// The manager treats it as "no credential".
	ErrStoreUnreadable = errors.New("token store unreadable")
)
