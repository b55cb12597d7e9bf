// Package validation holds the primitive field checks shared by forms and services.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	MaxUsernameLength = 30
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s.]+$`)

// Required rejects blank values.
func Required(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("This field is required.")
	}
	return nil
}

// MinLength rejects values shorter than min characters.
func MinLength(value string, min int) error {
	if utf8.RuneCountInString(value) < min {
		return fmt.Errorf("Field must be at least %d characters long.", min)
	}
	return nil
}

// MaxLength rejects values longer than max characters.
func MaxLength(value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("Field cannot be longer than %d characters.", max)
	}
	return nil
}

// ValidateEmail checks the address shape: one @ and a dotted domain.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return errors.New("Invalid email address.")
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	return MinLength(password, MinPasswordLength)
}

// ValidateUsername requires a non-blank name of at most 30 characters without whitespace.
func ValidateUsername(username string) error {
	if err := Required(username); err != nil {
		return err
	}
	if err := MaxLength(username, MaxUsernameLength); err != nil {
		return err
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return errors.New("Username cannot contain spaces.")
	}
	return nil
}
