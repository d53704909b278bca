package store

import "errors"

var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition indicates a requested status change has no edge in
	// the lifecycle graph. The wrapped message carries current and requested
	// statuses.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadyInFlight indicates another worker holds a live lease on the episode.
	ErrAlreadyInFlight = errors.New("episode already in flight")
)
