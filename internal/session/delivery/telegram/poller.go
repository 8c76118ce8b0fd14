package telegram

import (
	"context"
	"time"

	pkgLog "gpt-relay-bot/pkg/log"
)

const (
	DefaultPollTimeout = 30 * time.Second

	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Poller feeds long-polled updates into a Handler.
type Poller struct {
	l       pkgLog.Logger
	src     UpdateSource
	h       Handler
	timeout time.Duration
}

// NewPoller creates a long-polling loop. timeout is the server-side wait per getUpdates call.
func NewPoller(l pkgLog.Logger, src UpdateSource, h Handler, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &Poller{l: l, src: src, h: h, timeout: timeout}
}

// Run polls until ctx is cancelled. Errors are logged and retried with
// exponential backoff; Run only returns when ctx is done.
func (p *Poller) Run(ctx context.Context) {
	var offset int64
	backoff := minBackoff

	p.l.Infof(ctx, "session.delivery.telegram.Poller: started, timeout=%s", p.timeout)
	defer p.l.Infof(ctx, "session.delivery.telegram.Poller: stopped")

	for ctx.Err() == nil {
		updates, err := p.src.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.l.Warnf(ctx, "session.delivery.telegram.Poller: getUpdates failed, retrying in %s: %v", backoff, err)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			p.h.HandleUpdate(ctx, u)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
