package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the bcrypt input limit; longer passwords are rejected instead of silently truncated.
const MaxLength = 72

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrEmptyPassword   = errors.New("password cannot be empty")
	ErrTooLong         = fmt.Errorf("password must be at most %d bytes", MaxLength)
)

func Hash(password string) (string, error) {
	switch {
	case password == "":
		return "", ErrEmptyPassword
	case len(password) > MaxLength:
		return "", ErrTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashed), nil
}

// Verify returns ErrInvalidPassword for any mismatch, including empty input.
func Verify(password, hash string) error {
	if password == "" || hash == "" {
		return ErrInvalidPassword
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}

	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}

	return nil
}
