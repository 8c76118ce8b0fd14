package telegram

import "errors"

var (
	ErrInvalidSecret = errors.New("invalid webhook secret token")
)
