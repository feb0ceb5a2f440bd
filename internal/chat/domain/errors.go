package domain

import "errors"

var (
	// ErrUnauthenticated missing or bad credential
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden identity may not act on the room
	ErrForbidden = errors.New("forbidden")
	// ErrNotJoined per-room action before join
	ErrNotJoined = errors.New("must join room first")
	// ErrNotFound room, message or identity absent
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput rejected before any write
	ErrInvalidInput = errors.New("invalid input")
)
