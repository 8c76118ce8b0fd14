package model

// Scope identifies who a request is acting for.
type Scope struct {
	UserID   int64  // Telegram user id, the history key
	Username string // Telegram @username without the @, may be empty
	ChatID   int64  // Chat the reply goes to
}
