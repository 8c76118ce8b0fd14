package history

import "unicode/utf8"

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one message exchanged in a conversation. Turns are values and are
// never modified once stored.
type Turn struct {
	Role    Role
	Content string
}

// UserTurn builds a turn spoken by the end user.
func UserTurn(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// AssistantTurn builds a turn spoken by the bot.
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// Len is the content length in code points.
func (t Turn) Len() int {
	return utf8.RuneCountInString(t.Content)
}
