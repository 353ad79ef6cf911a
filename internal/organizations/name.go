package organizations

import (
	"strings"
	"unicode/utf8"
)

const (
	MinNameLength = 2
	MaxNameLength = 100
)

// NormalizeName trims name and checks its length. It returns the trimmed
// name, or a validation *Error.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", validationError("create organization", msgNameRequired)
	}
	if n := utf8.RuneCountInString(trimmed); n < MinNameLength || n > MaxNameLength {
		return "", validationError("create organization", msgNameLength)
	}
	return trimmed, nil
}
