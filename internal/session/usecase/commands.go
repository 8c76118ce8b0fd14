package usecase

import (
	"context"
	"fmt"
	"strings"

	"gpt-relay-bot/internal/model"
	"gpt-relay-bot/internal/session"
)

type command struct {
	session.Command
	handle func(ctx context.Context, sc model.Scope) (session.Output, error)
}

func (uc *implUseCase) commandTable() []command {
	return []command{
		{
			Command: session.Command{Name: session.CommandStart, Description: "Start a conversation"},
			handle:  uc.resetWith(session.MessageStarted),
		},
		{
			Command: session.Command{Name: session.CommandClear, Description: "Clear conversation history"},
			handle:  uc.resetWith(session.MessageCleared),
		},
		{
			Command: session.Command{Name: session.CommandHelp, Description: "Show command list"},
			handle:  uc.help,
		},
	}
}

// Commands returns the command table in display order.
func (uc *implUseCase) Commands() []session.Command {
	out := make([]session.Command, len(uc.commands))
	for i, c := range uc.commands {
		out[i] = c.Command
	}
	return out
}

// HandleMessage routes a message to its command handler or to the chat path.
func (uc *implUseCase) HandleMessage(ctx context.Context, sc model.Scope, input session.MessageInput) (session.Output, error) {
	if sc.UserID == 0 {
		return session.Output{}, session.ErrInvalidScope
	}

	// A command addressed to another bot is plain chat text for this one.
	if name, ours := parseCommand(input.Text, uc.cfg.BotUsername); ours {
		if i, ok := uc.index[name]; ok {
			uc.l.Infof(ctx, "session.usecase.HandleMessage: user=%d command=%s", sc.UserID, name)
			return uc.commands[i].handle(ctx, sc)
		}
	}

	return uc.HandleChat(ctx, sc, input)
}

func (uc *implUseCase) resetWith(text string) func(ctx context.Context, sc model.Scope) (session.Output, error) {
	return func(ctx context.Context, sc model.Scope) (session.Output, error) {
		if err := uc.store.Clear(ctx, sc.UserID); err != nil {
			uc.l.Errorf(ctx, "session.usecase.reset: user=%d: %v", sc.UserID, err)
			return session.Output{}, fmt.Errorf("reset history: %w", err)
		}
		return uc.reply(text, false), nil
	}
}

func (uc *implUseCase) help(_ context.Context, _ model.Scope) (session.Output, error) {
	lines := make([]string, len(uc.commands))
	for i, c := range uc.commands {
		lines[i] = fmt.Sprintf("%s: %s", c.Name, c.Description)
	}
	return uc.reply(strings.Join(lines, "\n"), false), nil
}

func (uc *implUseCase) reply(text string, markdown bool) session.Output {
	return session.Output{Reply: &session.Reply{
		Text:     text,
		Keyboard: session.CommandKeyboard(uc.Commands()),
		Markdown: markdown,
	}}
}

// parseCommand extracts the command name from a message starting with "/".
// ours is false when the command carries an @suffix naming a different bot.
func parseCommand(text, botUsername string) (name string, ours bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}

	name, target, found := strings.Cut(fields[0], "@")
	if !found || botUsername == "" {
		return name, true
	}
	return name, strings.EqualFold(target, strings.TrimPrefix(botUsername, "@"))
}
