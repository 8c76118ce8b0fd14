package completion

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"gpt-relay-bot/internal/history"
	"gpt-relay-bot/pkg/llmprovider"
	pkgLog "gpt-relay-bot/pkg/log"
)

type gateway struct {
	l         pkgLog.Logger
	gen       Generator
	sentinels map[string]struct{}
	retry     RetryPolicy
	fallback  string
	temp      float64
	maxTokens int
}

var _ UseCase = (*gateway)(nil)

// New creates a completion gateway on top of gen.
func New(l pkgLog.Logger, gen Generator, cfg Config) UseCase {
	sentinels := cfg.Sentinels
	if sentinels == nil {
		sentinels = []string{DefaultSentinel}
	}
	set := make(map[string]struct{}, len(sentinels))
	for _, s := range sentinels {
		set[s] = struct{}{}
	}

	fallback := cfg.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = DefaultSentinelMaxAttempts
	}

	return &gateway{
		l:         l,
		gen:       gen,
		sentinels: set,
		retry:     cfg.Retry,
		fallback:  fallback,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
	}
}

func (g *gateway) Generate(ctx context.Context, turns []history.Turn) (string, error) {
	text, err := g.generate(ctx, turns)
	if err != nil {
		g.l.Errorf(ctx, "internal.completion.Generate: %v", err)
		return g.fallback, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return text, nil
}

func (g *gateway) generate(ctx context.Context, turns []history.Turn) (string, error) {
	req := &llmprovider.Request{
		Messages:    toMessages(turns),
		Temperature: g.temp,
		MaxTokens:   g.maxTokens,
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if g.retry.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(g.retry.Interval), 1)
	}

	maxAttempts := g.retry.MaxAttempts
	if maxAttempts < 0 {
		maxAttempts = math.MaxInt
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := g.gen.GenerateContent(ctx, req)
		if err != nil {
			return "", err
		}

		text := resp.Text()
		if _, ok := g.sentinels[text]; !ok {
			return text, nil
		}
		g.l.Warnf(ctx, "internal.completion.generate: sentinel answer %q on attempt %d, retrying", text, attempt)
	}

	return "", fmt.Errorf("%w after %d attempts", ErrSentinelExhausted, g.retry.MaxAttempts)
}

func toMessages(turns []history.Turn) []llmprovider.Message {
	msgs := make([]llmprovider.Message, len(turns))
	for i, t := range turns {
		role := llmprovider.RoleUser
		switch t.Role {
		case history.RoleAssistant:
			role = llmprovider.RoleAssistant
		case history.RoleSystem:
			role = llmprovider.RoleSystem
		}
		msgs[i] = llmprovider.Message{Role: role, Content: t.Content}
	}
	return msgs
}
