package advisor

import "errors"

var (
	// ErrSessionNotFound reports an unknown, deleted, or expired session id.
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrEmptyQuestion reports a blank follow-up question.
	ErrEmptyQuestion = errors.New("question must not be empty")
)
