package session

import "errors"

// Lifecycle error types
var (
	ErrNoJoinURL        = errors.New("no join URL available for this requester")
	ErrConcurrentUpdate = errors.New("meeting record changed concurrently")
	ErrUnknownMode      = errors.New("invalid mode: must be 'attend' or 'moderate'")
)
