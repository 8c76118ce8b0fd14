package telegram

import "encoding/json"

const (
	ParseModeMarkdown = "Markdown"

	// MaxMessageLength is the Bot API limit for one text message, in runes.
	MaxMessageLength = 4096
)

// Update represents a Telegram incoming update.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message represents a Telegram message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      *Chat  `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

// User represents a Telegram user.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Chat represents a Telegram chat.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// KeyboardButton is one button of a reply keyboard.
type KeyboardButton struct {
	Text string `json:"text"`
}

// ReplyKeyboardMarkup is a custom keyboard shown under the input field.
type ReplyKeyboardMarkup struct {
	Keyboard       [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard,omitempty"`
}

// SendMessageRequest is the payload for Telegram sendMessage API.
type SendMessageRequest struct {
	ChatID                   int64                `json:"chat_id"`
	Text                     string               `json:"text"`
	ParseMode                string               `json:"parse_mode,omitempty"`
	ReplyToMessageID         int64                `json:"reply_to_message_id,omitempty"`
	AllowSendingWithoutReply bool                 `json:"allow_sending_without_reply,omitempty"`
	ReplyMarkup              *ReplyKeyboardMarkup `json:"reply_markup,omitempty"`
}

// GetUpdatesRequest is the payload for Telegram getUpdates API.
type GetUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// SetWebhookRequest is the payload for Telegram setWebhook API.
type SetWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// DeleteWebhookRequest is the payload for Telegram deleteWebhook API.
type DeleteWebhookRequest struct {
	DropPendingUpdates bool `json:"drop_pending_updates,omitempty"`
}

// APIResponse is a generic Telegram Bot API response wrapper.
type APIResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// ReplyOptions describes a reply to an incoming message.
type ReplyOptions struct {
	ChatID           int64
	ReplyToMessageID int64
	Text             string
	ParseMode        string
	Keyboard         [][]string
}

// NewReplyKeyboard builds a resized keyboard from button label rows.
func NewReplyKeyboard(rows [][]string) *ReplyKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := &ReplyKeyboardMarkup{
		Keyboard:       make([][]KeyboardButton, len(rows)),
		ResizeKeyboard: true,
	}
	for i, row := range rows {
		buttons := make([]KeyboardButton, len(row))
		for j, label := range row {
			buttons[j] = KeyboardButton{Text: label}
		}
		kb.Keyboard[i] = buttons
	}
	return kb
}
