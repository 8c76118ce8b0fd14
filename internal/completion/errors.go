package completion

import "errors"

var (
	// ErrGeneration marks any failed generation; callers reply with the fallback text.
	ErrGeneration = errors.New("generation failed")

	// ErrSentinelExhausted means the backend kept answering with a traffic sentinel.
	ErrSentinelExhausted = errors.New("sentinel retries exhausted")
)
