package types

import "errors"

// ARCHITECTURAL DISCOVERY: One sentinel per failure class lets every layer
// match with errors.Is while wrapping context on the way up
var (
	ErrRemoteUnavailable    = errors.New("conferencing server unavailable")
	ErrRemoteRejected       = errors.New("conferencing server rejected the request")
	ErrNotFound             = errors.New("meeting session not found")
	ErrAlreadyEnded         = errors.New("meeting has been forcibly ended")
	ErrConfigurationMissing = errors.New("content type is not meeting-enabled")
)

// Validation errors
var (
	ErrInvalidItemID      = errors.New("content item ID must be a UUID")
	ErrInvalidItemType    = errors.New("content item type must be 1-64 characters, alphanumeric + underscore/hyphen only")
	ErrEmptyTitle         = errors.New("content item title cannot be empty")
	ErrEmptyMeetingID     = errors.New("meeting ID cannot be empty")
	ErrEmptyMeetingName   = errors.New("meeting name cannot be empty")
	ErrEmptyPassword      = errors.New("moderator and attendee passwords must be set")
	ErrSamePasswords      = errors.New("moderator and attendee passwords must differ")
	ErrInvalidVoiceBridge = errors.New("voice bridge must be a 5-digit number")
	ErrInvalidLimit       = errors.New("max participants and duration cannot be negative")
)
