package typeconfig

import "errors"

var (
	ErrInvalidTypeName = errors.New("content type name must be 1-64 characters, alphanumeric + underscore/hyphen only")
	ErrUnknownKeys     = errors.New("unknown keys in type configuration")
	ErrSamePasswords   = errors.New("moderator_password and attendee_password must differ")
	ErrNegativeLimit   = errors.New("max_participants and duration cannot be negative")
)
