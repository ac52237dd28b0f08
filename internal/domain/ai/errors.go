package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrUnavailable means the provider is short-circuited after repeated failures.
var ErrUnavailable = errors.New("ai provider unavailable")
