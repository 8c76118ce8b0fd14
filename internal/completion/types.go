package completion

import (
	"context"
	"time"

	"gpt-relay-bot/internal/history"
	"gpt-relay-bot/pkg/llmprovider"
)

const (
	// DefaultSentinel is the traffic-anomaly text some backends return instead of an answer.
	DefaultSentinel = "流量异常,请尝试更换网络环境"

	DefaultFallback = "Sorry, there's been an error."

	DefaultSentinelMaxAttempts = 5

	// UnboundedAttempts retries sentinel answers without limit.
	UnboundedAttempts = -1
)

// Generator is the backend the gateway drives. *llmprovider.Manager satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, req *llmprovider.Request) (*llmprovider.Response, error)
}

// RetryPolicy bounds how often a sentinel answer is retried.
//
// MaxAttempts counts backend calls, including the first. Zero means
// DefaultSentinelMaxAttempts. A negative value (UnboundedAttempts) retries
// until a non-sentinel answer arrives; such a loop can stall the calling
// goroutine for as long as the backend keeps answering with a sentinel.
// Interval is the minimum spacing between calls.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetryPolicy returns the bounded policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultSentinelMaxAttempts}
}

// Config configures a Gateway.
type Config struct {
	Sentinels   []string
	Retry       RetryPolicy
	Fallback    string
	Temperature float64
	MaxTokens   int
}

// UseCase turns an ordered turn sequence into one assistant reply.
type UseCase interface {
	// Generate returns the reply text. On failure the error wraps
	// ErrGeneration and the text is the fallback message, never empty.
	Generate(ctx context.Context, turns []history.Turn) (string, error)
}
