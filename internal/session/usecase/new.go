package usecase

import (
	"gpt-relay-bot/internal/completion"
	"gpt-relay-bot/internal/history"
	"gpt-relay-bot/internal/session"
	pkgLog "gpt-relay-bot/pkg/log"
)

type implUseCase struct {
	l        pkgLog.Logger
	store    history.Store
	gen      completion.UseCase
	cfg      session.Config
	commands []command
	index    map[string]int
}

var _ session.UseCase = (*implUseCase)(nil)

// New creates a new session UseCase instance.
func New(
	l pkgLog.Logger,
	store history.Store,
	gen completion.UseCase,
	cfg session.Config,
) session.UseCase {
	uc := &implUseCase{
		l:     l,
		store: store,
		gen:   gen,
		cfg:   cfg,
	}
	uc.commands = uc.commandTable()
	uc.index = make(map[string]int, len(uc.commands))
	for i, c := range uc.commands {
		uc.index[c.Name] = i
	}
	return uc
}
