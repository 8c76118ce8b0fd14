package history

import "errors"

var (
	ErrInvalidUser    = errors.New("user id is required")
	ErrUnknownBackend = errors.New("unknown history backend")
)
