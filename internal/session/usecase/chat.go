package usecase

import (
	"context"
	"fmt"
	"strings"

	"gpt-relay-bot/internal/history"
	"gpt-relay-bot/internal/model"
	"gpt-relay-bot/internal/session"
)

// HandleChat appends the user's message, asks the completion gateway for an
// answer and records it. Generation failures never surface as errors, the
// fallback text is replied instead.
func (uc *implUseCase) HandleChat(ctx context.Context, sc model.Scope, input session.MessageInput) (session.Output, error) {
	if sc.UserID == 0 {
		return session.Output{}, session.ErrInvalidScope
	}

	// A bare command typed as chat text is dropped.
	if _, ok := uc.index[strings.TrimSpace(input.Text)]; ok {
		return session.Output{}, nil
	}

	turns, err := uc.store.GetOrCreate(ctx, sc.UserID)
	if err != nil {
		return session.Output{}, fmt.Errorf("load history: %w", err)
	}
	if len(turns) == 0 {
		if err := uc.store.Append(ctx, sc.UserID, history.AssistantTurn(session.SeedMessage(uc.cfg.Model))); err != nil {
			return session.Output{}, fmt.Errorf("seed history: %w", err)
		}
	}

	if err := uc.store.Append(ctx, sc.UserID, history.UserTurn(input.Text)); err != nil {
		return session.Output{}, fmt.Errorf("append user turn: %w", err)
	}

	snapshot, err := uc.store.Snapshot(ctx, sc.UserID)
	if err != nil {
		return session.Output{}, fmt.Errorf("snapshot history: %w", err)
	}

	uc.l.Infof(ctx, "session.usecase.HandleChat: user=%d turns=%d length=%d", sc.UserID, len(snapshot), history.TotalLength(snapshot))

	text, genErr := uc.gen.Generate(ctx, snapshot)
	if genErr != nil {
		uc.l.Warnf(ctx, "session.usecase.HandleChat: user=%d: %v", sc.UserID, genErr)
	}

	if genErr == nil || uc.cfg.RecordFallback {
		if err := uc.store.Append(ctx, sc.UserID, history.AssistantTurn(text)); err != nil {
			return session.Output{}, fmt.Errorf("append assistant turn: %w", err)
		}
	}

	if text == "" {
		return session.Output{}, nil
	}
	return uc.reply(text, true), nil
}
