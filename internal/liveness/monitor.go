// Package liveness keeps a periodic check against the Telegram API so the
// process can report whether its upstream is reachable.
package liveness

import (
	"context"
	"sync"
	"time"

	pkgLog "gpt-relay-bot/pkg/log"
	pkgTelegram "gpt-relay-bot/pkg/telegram"
)

const DefaultInterval = 5 * time.Second

// Checker checks the upstream once. *pkgTelegram.Bot satisfies it.
type Checker interface {
	GetMe(ctx context.Context) (*pkgTelegram.User, error)
}

// Status is a snapshot of the monitor state.
type Status struct {
	Healthy             bool      `json:"healthy"`
	LastCheck           time.Time `json:"last_check"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalFailures       int       `json:"total_failures"`
}

// Monitor checks the upstream on a fixed interval.
type Monitor struct {
	l        pkgLog.Logger
	checker   Checker
	interval time.Duration

	mu     sync.RWMutex
	status Status
}

// New creates a monitor. It reports unhealthy until the first check succeeds.
func New(l pkgLog.Logger, checker Checker, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{l: l, checker: checker, interval: interval}
}

// Run checks immediately and then every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// Healthy reports whether the last check succeeded.
func (m *Monitor) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy
}

// Status returns the current state.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	_, err := m.checker.GetMe(checkCtx)
	if err != nil && ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.LastCheck = time.Now()
	if err != nil {
		m.status.Healthy = false
		m.status.LastError = err.Error()
		m.status.ConsecutiveFailures++
		m.status.TotalFailures++
		m.l.Errorf(ctx, "internal.liveness.check: getMe failed (%d in a row): %v", m.status.ConsecutiveFailures, err)
		return
	}

	if m.status.ConsecutiveFailures > 0 {
		m.l.Infof(ctx, "internal.liveness.check: recovered after %d failures", m.status.ConsecutiveFailures)
	}
	m.status.Healthy = true
	m.status.LastError = ""
	m.status.ConsecutiveFailures = 0
}
