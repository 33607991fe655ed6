package runner

import "errors"

// Navigation commands typed by the user in place of an answer.
const (
	CommandBack  = ":back"
	CommandReset = ":reset"
	CommandQuit  = ":quit"
	CommandClear = "-"
)

// Errors returned by renderers' CollectAnswers when the user asks to navigate
// instead of answering. The Runner turns them into wizard calls.
var (
	ErrBack  = errors.New("user requested previous step")
	ErrReset = errors.New("user requested restart")
	ErrQuit  = errors.New("user quit")
)

// commandError maps a typed command to its error, or nil.
func commandError(input string) error {
	switch input {
	case CommandBack:
		return ErrBack
	case CommandReset:
		return ErrReset
	case CommandQuit, "exit", "quit":
		return ErrQuit
	}
	return nil
}
