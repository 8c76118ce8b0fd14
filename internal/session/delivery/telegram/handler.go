package telegram

import (
	"context"
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"gpt-relay-bot/internal/completion"
	"gpt-relay-bot/internal/model"
	"gpt-relay-bot/internal/session"
	pkgLog "gpt-relay-bot/pkg/log"
	pkgResponse "gpt-relay-bot/pkg/response"
	pkgTelegram "gpt-relay-bot/pkg/telegram"
)

// HandleWebhook acknowledges the update immediately and processes the
// message on the dispatcher, detached from the request context.
func (h *handler) HandleWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	if h.secret != "" {
		got := c.GetHeader(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.l.Warnf(ctx, "session.delivery.telegram.HandleWebhook: %v", ErrInvalidSecret)
			pkgResponse.Unauthorized(c)
			return
		}
	}

	var update pkgTelegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.l.Errorf(ctx, "session.delivery.telegram.HandleWebhook: failed to parse update: %v", err)
		pkgResponse.Error(c, err, nil)
		return
	}

	// Ignore non-message updates (edited messages, channel posts, etc.)
	if update.Message == nil {
		pkgResponse.OK(c, map[string]string{"status": "ignored"})
		return
	}

	h.HandleUpdate(context.WithoutCancel(ctx), update)
	pkgResponse.OK(c, map[string]string{"status": "accepted"})
}

// HandleUpdate queues a text message on the sender's dispatcher lane.
func (h *handler) HandleUpdate(ctx context.Context, update pkgTelegram.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return
	}

	sc := model.Scope{
		UserID:   msg.From.ID,
		Username: msg.From.Username,
		ChatID:   msg.Chat.ID,
	}

	if pkgLog.TraceID(ctx) == "" {
		ctx = pkgLog.NewTraceContext(ctx)
	}
	h.l.Debugf(ctx, "session.delivery.telegram.HandleUpdate: update=%d user=%d chat=%d", update.UpdateID, sc.UserID, sc.ChatID)

	err := h.disp.Submit(ctx, sc.UserID, func(ctx context.Context) {
		h.processMessage(ctx, sc, msg)
	})
	if err != nil {
		h.l.Warnf(ctx, "session.delivery.telegram.HandleUpdate: dropping update %d: %v", update.UpdateID, err)
	}
}

func (h *handler) processMessage(ctx context.Context, sc model.Scope, msg *pkgTelegram.Message) {
	out, err := h.uc.HandleMessage(ctx, sc, session.MessageInput{Text: msg.Text})
	if err != nil {
		h.l.Errorf(ctx, "session.delivery.telegram.processMessage: user=%d: %v", sc.UserID, err)
		out = session.Output{Reply: &session.Reply{Text: completion.DefaultFallback}}
	}
	if out.Reply == nil {
		return
	}

	if err := h.bot.SendReply(ctx, toReplyOptions(sc, msg, out.Reply)); err != nil {
		h.l.Errorf(ctx, "session.delivery.telegram.processMessage: send reply to chat %d: %v", sc.ChatID, err)
	}
}

func toReplyOptions(sc model.Scope, msg *pkgTelegram.Message, r *session.Reply) pkgTelegram.ReplyOptions {
	opts := pkgTelegram.ReplyOptions{
		ChatID:           sc.ChatID,
		ReplyToMessageID: msg.MessageID,
		Text:             r.Text,
		Keyboard:         r.Keyboard,
	}
	if r.Markdown {
		opts.ParseMode = pkgTelegram.ParseModeMarkdown
	}
	return opts
}
