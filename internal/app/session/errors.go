package session

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrSessionNotFound = errors.New("session_not_found")
)
