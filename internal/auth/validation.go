package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// ValidatePassword checks length bounds. bcrypt only reads the first 72
// bytes, so longer passwords are rejected instead of truncated.
func ValidatePassword(password string, minLength int) error {
	if minLength < 1 {
		minLength = 1
	}

	if utf8.RuneCountInString(password) < minLength {
		return fmt.Errorf("password must be at least %d characters long", minLength)
	}

	if len(password) > 72 {
		return ErrPasswordTooLong
	}

	return nil
}

// ValidateEmail checks that email is a bare address
func ValidateEmail(email string) error {
	if len(email) > 255 {
		return fmt.Errorf("email must be at most 255 characters long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email format is invalid")
	}
	if !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return fmt.Errorf("email domain is invalid")
	}
	return nil
}

// ValidateUsername checks the display name chosen at registration
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username is required")
	}
	if utf8.RuneCountInString(username) > 255 {
		return fmt.Errorf("username must be at most 255 characters long")
	}
	return nil
}
