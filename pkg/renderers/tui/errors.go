package tui

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrDeclined is returned by ConfirmSubmit when the user answers no.
	ErrDeclined = errors.New("tui: submission declined")
)

// AttemptsError reports a field that was still invalid after the configured
// number of prompts.
type AttemptsError struct {
	Field    string
	Attempts int
	Reason   string
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("tui: %s still invalid after %d attempt(s): %s", e.Field, e.Attempts, e.Reason)
}
