package session

import "fmt"

const (
	CommandStart = "/start"
	CommandClear = "/clear"
	CommandHelp  = "/help"

	MessageStarted = "Hi! I'm ready to chat with you."
	MessageCleared = "History cleared."

	KeyboardTitle = "Select the command ⬇"

	seedFormat = "I'm %s as a telegram bot, ready to help with your questions!"
)

// SeedMessage is the assistant turn that opens every fresh session.
func SeedMessage(model string) string {
	return fmt.Sprintf(seedFormat, model)
}

// CommandKeyboard returns the static reply keyboard, one button per row.
func CommandKeyboard(cmds []Command) [][]string {
	rows := make([][]string, 0, len(cmds)+1)
	rows = append(rows, []string{KeyboardTitle})
	for _, c := range cmds {
		rows = append(rows, []string{c.Name})
	}
	return rows
}
