package session

// MessageInput is the text of one incoming message.
type MessageInput struct {
	Text string
}

// Output is what the transport should send back. A nil Reply means send nothing.
type Output struct {
	Reply *Reply
}

// Reply is one outbound message.
type Reply struct {
	Text     string
	Keyboard [][]string // reply keyboard rows, nil for none
	Markdown bool
}

// Command is one entry of the command table.
type Command struct {
	Name        string // including the leading slash
	Description string
}

// Config configures the session use case.
type Config struct {
	// Model is named in the seed turn of a fresh session.
	Model string
	// BotUsername lets "/cmd@BotUsername" address this bot. Empty accepts any suffix.
	BotUsername string
	// RecordFallback stores the fallback reply in history when generation fails.
	RecordFallback bool
}
