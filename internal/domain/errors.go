package domain

import "errors"

var (
	// ErrInvalidRequest rejects a checkout before any external call or write.
	ErrInvalidRequest = errors.New("invalid checkout request")

	// ErrProviderUnavailable means session creation failed, no order was created.
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// ErrInvalidSignature rejects a webhook before any lookup or state change.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
