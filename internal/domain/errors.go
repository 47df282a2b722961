package domain

import "errors"

var (
	ErrNotActivated              = errors.New("session not activated")
	ErrAuthorizationDenied       = errors.New("authorization denied")
	ErrRestrictedEnvironment     = errors.New("restricted environment")
	ErrInsufficientBatchSize     = errors.New("insufficient batch size")
	ErrSessionClosed             = errors.New("session closed")
	ErrSessionInvalidated        = errors.New("session invalidated")
	ErrInternalDerivationFailure = errors.New("internal derivation failure")

	ErrDetectionPending   = errors.New("detection not finished")
	ErrContactsExhausted  = errors.New("contact stream exhausted")
	ErrKeyBufferFull      = errors.New("key buffer full")
	ErrRequestInvalidated = errors.New("request invalidated")

	ErrInvalidKeySize    = errors.New("invalid daily tracing key size")
	ErrInvalidIdentifier = errors.New("invalid rolling proximity identifier")
	ErrWindowOutOfRange  = errors.New("window index out of range")
	ErrSecretNotFound    = errors.New("secret not found")
)
