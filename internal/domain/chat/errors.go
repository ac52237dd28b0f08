package chat

import "errors"

var (
	ErrNoMessageToRespondTo = errors.New("no user message to respond to")
	ErrGenerationFailure    = errors.New("response generation failed")
	ErrEmptyMessage         = errors.New("message content is required")
)
