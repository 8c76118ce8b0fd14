package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpt-relay-bot/internal/completion"
	"gpt-relay-bot/internal/history"
	"gpt-relay-bot/internal/model"
	"gpt-relay-bot/internal/session"
	pkgLog "gpt-relay-bot/pkg/log"
)

type mockGateway struct {
	mu     sync.Mutex
	calls  int
	seen   [][]history.Turn
	answer func(turns []history.Turn) (string, error)
}

func (m *mockGateway) Generate(_ context.Context, turns []history.Turn) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.seen = append(m.seen, turns)
	return m.answer(turns)
}

func echoGateway() *mockGateway {
	return &mockGateway{answer: func(turns []history.Turn) (string, error) {
		return "echo: " + turns[len(turns)-1].Content, nil
	}}
}

func failingGateway() *mockGateway {
	return &mockGateway{answer: func([]history.Turn) (string, error) {
		return completion.DefaultFallback, fmt.Errorf("%w: boom", completion.ErrGeneration)
	}}
}

func newTestUseCase(gw *mockGateway, cfg session.Config) (session.UseCase, *history.MemoryStore) {
	store := history.NewMemoryStore(history.DefaultMaxLength)
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	return New(pkgLog.NewNop(), store, gw, cfg), store
}

var alice = model.Scope{UserID: 42, Username: "alice", ChatID: 42}

func TestHandleMessage_FreshSessionIsSeeded(t *testing.T) {
	gw := echoGateway()
	uc, store := newTestUseCase(gw, session.Config{})
	ctx := context.Background()

	out, err := uc.HandleMessage(ctx, alice, session.MessageInput{Text: "hi"})
	require.NoError(t, err)
	require.NotNil(t, out.Reply)
	assert.Equal(t, "echo: hi", out.Reply.Text)
	assert.True(t, out.Reply.Markdown)

	turns, err := store.Snapshot(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, []history.Turn{
		history.AssistantTurn("I'm gpt-3.5-turbo as a telegram bot, ready to help with your questions!"),
		history.UserTurn("hi"),
		history.AssistantTurn("echo: hi"),
	}, turns)

	require.Len(t, gw.seen, 1)
	assert.Len(t, gw.seen[0], 2, "gateway sees the seed and the user turn")
}

func TestHandleMessage_SecondMessageIsNotSeeded(t *testing.T) {
	uc, store := newTestUseCase(echoGateway(), session.Config{})
	ctx := context.Background()

	for _, text := range []string{"one", "two"} {
		_, err := uc.HandleMessage(ctx, alice, session.MessageInput{Text: text})
		require.NoError(t, err)
	}

	turns, _ := store.Snapshot(ctx, alice.UserID)
	require.Len(t, turns, 5)
	assert.Equal(t, history.UserTurn("two"), turns[3])
	assert.Equal(t, history.AssistantTurn("echo: two"), turns[4])
}

func TestHandleChat_BareCommandIsSilenced(t *testing.T) {
	gw := echoGateway()
	uc, store := newTestUseCase(gw, session.Config{})
	ctx := context.Background()

	for _, text := range []string{"/start", "  /help ", "/clear\n"} {
		out, err := uc.HandleChat(ctx, alice, session.MessageInput{Text: text})
		require.NoError(t, err)
		assert.Nil(t, out.Reply, text)
	}

	assert.Zero(t, gw.calls)
	exists, _ := store.Exists(ctx, alice.UserID)
	assert.False(t, exists)
}

func TestHandleMessage_StartAndClearReset(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "/start", want: session.MessageStarted},
		{text: "/clear", want: session.MessageCleared},
		{text: "/clear@relay_bot extra args", want: session.MessageCleared},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			gw := echoGateway()
			uc, store := newTestUseCase(gw, session.Config{BotUsername: "relay_bot"})
			ctx := context.Background()

			_, err := uc.HandleMessage(ctx, alice, session.MessageInput{Text: "hello"})
			require.NoError(t, err)

			out, err := uc.HandleMessage(ctx, alice, session.MessageInput{Text: tt.text})
			require.NoError(t, err)
			require.NotNil(t, out.Reply)
			assert.Equal(t, tt.want, out.Reply.Text)
			assert.Equal(t, [][]string{{session.KeyboardTitle}, {"/start"}, {"/clear"}, {"/help"}}, out.Reply.Keyboard)

			turns, _ := store.Snapshot(ctx, alice.UserID)
			assert.Empty(t, turns)
			assert.Equal(t, 1, gw.calls, "commands never reach the gateway")
		})
	}
}

func TestHandleMessage_StartRegistersUnknownUser(t *testing.T) {
	uc, store := newTestUseCase(echoGateway(), session.Config{})
	ctx := context.Background()

	_, err := uc.HandleMessage(ctx, alice, session.MessageInput{Text: "/start"})
	require.NoError(t, err)

	exists, _ := store.Exists(ctx, alice.UserID)
	assert.True(t, exists)
}

func TestHandleMessage_Help(t *testing.T) {
	gw := echoGateway()
	uc, store := newTestUseCase(gw, session.Config{})
	ctx := context.Background()

	out, err := uc.HandleMessage(ctx, alice, session.MessageInput{Text: "/help"})
	require.NoError(t, err)
	require.NotNil(t, out.Reply)
	assert.Equal(t, "/start: Start a conversation\n/clear: Clear conversation history\n/help: Show command list", out.Reply.Text)
	assert.False(t, out.Reply.Markdown)

	exists, _ := store.Exists(ctx, alice.UserID)
	assert.False(t, exists, "/help does not touch history")
	assert.Zero(t, gw.calls)
}

func TestHandleMessage_CommandForAnotherBotIsChat(t *testing.T) {
	gw := echoGateway()
	uc, store := newTestUseCase(gw, session.Config{BotUsername: "relay_bot"})
	ctx := context.Background()

	_, err := uc.HandleMessage(ctx, alice, session.MessageInput{Text: "hello"})
	require.NoError(t, err)

	out, err := uc.HandleMessage(ctx, alice, session.MessageInput{Text: "/clear@other_bot"})
	require.NoError(t, err)
	require.NotNil(t, out.Reply)
	assert.Equal(t, "echo: /clear@other_bot", out.Reply.Text)
	assert.Equal(t, 2, gw.calls)

	turns, _ := store.Snapshot(ctx, alice.UserID)
	require.Len(t, turns, 5, "history is not reset by another bot's command")
	assert.Equal(t, history.UserTurn("/clear@other_bot"), turns[3])
}

func TestHandleMessage_UnknownSlashTextIsChat(t *testing.T) {
	gw := echoGateway()
	uc, _ := newTestUseCase(gw, session.Config{})

	out, err := uc.HandleMessage(context.Background(), alice, session.MessageInput{Text: "/weather today"})
	require.NoError(t, err)
	require.NotNil(t, out.Reply)
	assert.Equal(t, "echo: /weather today", out.Reply.Text)
}

func TestHandleChat_FallbackIsRepliedAndRecorded(t *testing.T) {
	uc, store := newTestUseCase(failingGateway(), session.Config{RecordFallback: true})
	ctx := context.Background()

	out, err := uc.HandleChat(ctx, alice, session.MessageInput{Text: "hi"})
	require.NoError(t, err)
	require.NotNil(t, out.Reply)
	assert.Equal(t, completion.DefaultFallback, out.Reply.Text)

	turns, _ := store.Snapshot(ctx, alice.UserID)
	require.Len(t, turns, 3)
	assert.Equal(t, history.UserTurn("hi"), turns[1])
	assert.Equal(t, history.AssistantTurn(completion.DefaultFallback), turns[2])
}

func TestHandleChat_FallbackNotRecorded(t *testing.T) {
	uc, store := newTestUseCase(failingGateway(), session.Config{RecordFallback: false})
	ctx := context.Background()

	out, err := uc.HandleChat(ctx, alice, session.MessageInput{Text: "hi"})
	require.NoError(t, err)
	require.NotNil(t, out.Reply)

	turns, _ := store.Snapshot(ctx, alice.UserID)
	require.Len(t, turns, 2, "the user turn stays, the fallback is not stored")
	assert.Equal(t, history.UserTurn("hi"), turns[1])
}

func TestHandleChat_EmptyCompletionSendsNothing(t *testing.T) {
	gw := &mockGateway{answer: func([]history.Turn) (string, error) { return "", nil }}
	uc, store := newTestUseCase(gw, session.Config{})
	ctx := context.Background()

	out, err := uc.HandleChat(ctx, alice, session.MessageInput{Text: "hi"})
	require.NoError(t, err)
	assert.Nil(t, out.Reply)

	turns, _ := store.Snapshot(ctx, alice.UserID)
	assert.Len(t, turns, 3)
}

func TestHandleChat_UsersAreIsolated(t *testing.T) {
	uc, store := newTestUseCase(echoGateway(), session.Config{})
	ctx := context.Background()
	bob := model.Scope{UserID: 7, ChatID: 7}

	_, err := uc.HandleChat(ctx, alice, session.MessageInput{Text: "from alice"})
	require.NoError(t, err)
	_, err = uc.HandleChat(ctx, bob, session.MessageInput{Text: "from bob"})
	require.NoError(t, err)

	aliceTurns, _ := store.Snapshot(ctx, alice.UserID)
	bobTurns, _ := store.Snapshot(ctx, bob.UserID)
	assert.Equal(t, "from alice", aliceTurns[1].Content)
	assert.Equal(t, "from bob", bobTurns[1].Content)
}

func TestHandleChat_LongHistoryIsTrimmed(t *testing.T) {
	gw := &mockGateway{answer: func([]history.Turn) (string, error) { return "ok", nil }}
	uc, store := newTestUseCase(gw, session.Config{})
	ctx := context.Background()

	long := make([]rune, 3000)
	for i := range long {
		long[i] = 'x'
	}
	for i := 0; i < 3; i++ {
		_, err := uc.HandleChat(ctx, alice, session.MessageInput{Text: string(long)})
		require.NoError(t, err)
	}

	turns, _ := store.Snapshot(ctx, alice.UserID)
	assert.LessOrEqual(t, history.TotalLength(turns), history.DefaultMaxLength)
	assert.Equal(t, history.AssistantTurn("ok"), turns[len(turns)-1])
}

func TestHandleMessage_RejectsMissingUser(t *testing.T) {
	uc, _ := newTestUseCase(echoGateway(), session.Config{})

	_, err := uc.HandleMessage(context.Background(), model.Scope{}, session.MessageInput{Text: "hi"})
	assert.True(t, errors.Is(err, session.ErrInvalidScope))
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text, bot, name string
		ours            bool
	}{
		{"hello", "", "", false},
		{"/start", "", "/start", true},
		{"/start now please", "", "/start", true},
		{"/help@relay_bot", "relay_bot", "/help", true},
		{"/help@Relay_Bot", "@relay_bot", "/help", true},
		{"/help@other", "relay_bot", "/help", false},
		{"/help@other", "", "/help", true},
		{"/", "", "/", true},
	}

	for _, tt := range tests {
		name, ours := parseCommand(tt.text, tt.bot)
		assert.Equal(t, tt.name, name, tt.text)
		assert.Equal(t, tt.ours, ours, tt.text)
	}
}
