package params

import "errors"

var (
	ErrInvalidSiteBaseURL = errors.New("site base URL must be absolute")
	ErrInvalidLogoutURL   = errors.New("invalid logout URL")
)
