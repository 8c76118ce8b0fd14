package middleware

import (
	"gpt-relay-bot/pkg/log"
)

// HeaderRequestID is read as the trace id when present and well formed, and
// echoed on responses.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 64

type Middleware struct {
	l log.Logger
}

func New(l log.Logger) Middleware {
	return Middleware{l: l}
}
