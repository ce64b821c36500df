package pipeline

import "errors"

var (
	// ErrInvalidTransition is returned when an event is not allowed from a stage.
	ErrInvalidTransition = errors.New("invalid stage transition")
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid stage token")
	// ErrStaleToken is returned when a token's stage no longer matches the server record.
	ErrStaleToken = errors.New("stale stage token")
)
