package auth

import "errors"

// Signature errors. Missing, malformed and unknown-key failures share the
// unauthenticated class so a caller cannot probe which key ids exist.
var (
	ErrMissingSignature = errors.New("request signature required")
	ErrInvalidFormat    = errors.New("invalid signature header format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidSignature = errors.New("invalid request signature")
	ErrStaleTimestamp   = errors.New("request timestamp outside allowed window")
)
