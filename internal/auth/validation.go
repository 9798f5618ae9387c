package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// ValidateEmail checks if an email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) < 255
}

// ValidatePassword checks length and that at least three of the four
// character classes are present. 72 is bcrypt's input limit.
func ValidatePassword(password string) bool {
	if len(password) < 8 || len(password) > 72 {
		return false
	}

	var classes [4]bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			classes[0] = true
		case unicode.IsLower(char):
			classes[1] = true
		case unicode.IsNumber(char):
			classes[2] = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			classes[3] = true
		}
	}

	n := 0
	for _, ok := range classes {
		if ok {
			n++
		}
	}
	return n >= 3
}

// PasswordRequirements lists the rules enforced by ValidatePassword.
func PasswordRequirements() []string {
	return []string{
		"At least 8 characters long",
		"Maximum 72 characters",
		"At least 3 of: uppercase letters, lowercase letters, numbers, special characters",
	}
}

// ValidateNewAccount is applied when an operator creates an account.
func ValidateNewAccount(email, password string) error {
	if !ValidateEmail(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if !ValidatePassword(password) {
		return fmt.Errorf("%w (%s)", ErrWeakPassword, strings.Join(PasswordRequirements(), "; "))
	}
	return nil
}
