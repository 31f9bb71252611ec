package public

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrProfileNotFound = errors.New("profile_not_found")
)
