package middleware

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SanitizeString drops control characters (tab and newline survive) and
// trims surrounding space from user supplied text.
func SanitizeString(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, input)
	return strings.TrimSpace(cleaned)
}

// ValidateLimit clamps a page size into [1, maxPageSize].
func ValidateLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	}
	return limit
}

func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func ValidateLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return nil
}

// ValidateText rejects invalid UTF-8 and NUL bytes without altering value.
func ValidateText(field, value string) error {
	if !utf8.ValidString(value) {
		return fmt.Errorf("%s must be valid UTF-8", field)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%s must not contain NUL bytes", field)
	}
	return nil
}
