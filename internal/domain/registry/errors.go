package registry

import "errors"

var (
	// ErrDuplicateKey indicates an add with a key already in the registry.
	// Keys are minted by the caller; a collision is a programming error.
	ErrDuplicateKey = errors.New("session key already in registry")

	// ErrNotFound indicates a remove or select on an absent key. Non-fatal;
	// callers may treat it as a no-op.
	ErrNotFound = errors.New("session key not found")
)
