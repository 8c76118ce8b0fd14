package session

import "errors"

var (
	ErrInvalidScope = errors.New("invalid scope: user id is required")
)
