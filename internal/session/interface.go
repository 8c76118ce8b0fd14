package session

import (
	"context"

	"gpt-relay-bot/internal/model"
)

// UseCase defines the business logic interface for the conversation session domain.
type UseCase interface {
	// HandleMessage is the single entry point for an incoming text message.
	// Known commands are dispatched from the command table, anything else goes
	// through HandleChat.
	HandleMessage(ctx context.Context, sc model.Scope, input MessageInput) (Output, error)

	// HandleChat runs one completion round trip for the user.
	HandleChat(ctx context.Context, sc model.Scope, input MessageInput) (Output, error)

	// Commands returns the command table in display order.
	Commands() []Command
}
