package interfaces

import "errors"

// Common interface errors used across components
var (
	ErrContentNotFound = errors.New("content item not found")
	ErrUnauthorized    = errors.New("unauthorized access")
)
