package profilelib

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9._]{1,30}$`)

var (
	ErrUsernameRequired = errors.New("Username required")
	ErrInvalidUsername  = errors.New("Invalid username")
)

// NormalizeUsername trims whitespace, lowercases and strips leading '@'
// characters. A '@' followed by whitespace is left in place so the value
// stays invalid; applying it twice yields the same value.
func NormalizeUsername(raw string) string {
	u := strings.TrimSpace(strings.ToLower(raw))
	stripped := strings.TrimLeft(u, "@")
	if r, _ := utf8.DecodeRuneInString(stripped); unicode.IsSpace(r) {
		return u
	}
	return stripped
}

// ValidateUsername checks an already normalized username.
func ValidateUsername(u string) error {
	if !usernamePattern.MatchString(u) {
		return ErrInvalidUsername
	}
	return nil
}

// ParseUsername normalizes and validates raw input from a request.
func ParseUsername(raw string) (string, error) {
	if raw == "" {
		return "", ErrUsernameRequired
	}
	u := NormalizeUsername(raw)
	if err := ValidateUsername(u); err != nil {
		return "", err
	}
	return u, nil
}
