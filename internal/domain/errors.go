package domain

import "errors"

// Sentinel errors shared across the sync core. Adapters translate provider
// responses into these so services can branch with errors.Is.
var (
	// ErrNotFound means a local record or an external resource is absent.
	ErrNotFound = errors.New("not found")
	// ErrAuth means credentials for the registry or an account-scoped client
	// are missing or expired.
	ErrAuth = errors.New("authentication required")
	// ErrInvalidInput means a request or change set is malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownAccount means a change request referenced an account id that
	// is not registered.
	ErrUnknownAccount = errors.New("unknown account")
)
