package models

import (
	"net/mail"
	"strings"

	"github.com/taskforge/taskforge-be/internal/apperr"
)

const minPasswordLength = 7

// ValidateName checks that a user name is non-empty.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.ErrValidation("name must not be empty")
	}
	return nil
}

// NormalizeEmail lowercases and validates an email address, returning the
// normalized form.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.ErrValidation("email is invalid")
	}
	return email, nil
}

// ValidatePassword enforces the plaintext password policy: a minimum length
// and no literal "password" substring.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperr.ErrValidation("password must be at least 7 characters long")
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return apperr.ErrValidation(`password must not contain "password"`)
	}
	return nil
}

// ValidateAge checks that an age is non-negative.
func ValidateAge(age int) error {
	if age < 0 {
		return apperr.ErrValidation("age must be a non-negative number")
	}
	return nil
}

// ValidateDescription checks that a task description is non-empty.
func ValidateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return apperr.ErrValidation("description must not be empty")
	}
	return nil
}
