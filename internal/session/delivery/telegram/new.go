package telegram

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"gpt-relay-bot/internal/dispatch"
	"gpt-relay-bot/internal/session"
	pkgLog "gpt-relay-bot/pkg/log"
	pkgTelegram "gpt-relay-bot/pkg/telegram"
)

// SecretHeader carries the secret token registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Sender delivers replies. *pkgTelegram.Bot satisfies it.
type Sender interface {
	SendReply(ctx context.Context, opts pkgTelegram.ReplyOptions) error
}

// UpdateSource long-polls for updates. *pkgTelegram.Bot satisfies it.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]pkgTelegram.Update, error)
}

// Dispatcher queues work per key. *dispatch.Dispatcher satisfies it.
type Dispatcher interface {
	Submit(ctx context.Context, key int64, task dispatch.Task) error
}

// Handler is the interface for the Telegram delivery handler.
type Handler interface {
	// HandleWebhook is the Gin handler for incoming Telegram webhook updates.
	HandleWebhook(c *gin.Context)
	// HandleUpdate queues one update for processing and returns immediately.
	HandleUpdate(ctx context.Context, update pkgTelegram.Update)
}

type handler struct {
	l      pkgLog.Logger
	uc     session.UseCase
	bot    Sender
	disp   Dispatcher
	secret string
}

// New creates a new Telegram delivery handler. An empty secret disables the
// webhook secret check.
func New(
	l pkgLog.Logger,
	uc session.UseCase,
	bot Sender,
	disp Dispatcher,
	secret string,
) Handler {
	return &handler{
		l:      l,
		uc:     uc,
		bot:    bot,
		disp:   disp,
		secret: secret,
	}
}
