package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is the only error VerifyPassword returns for a wrong
// password; anything else means the stored hash is unusable.
var ErrPasswordMismatch = errors.New("password mismatch")

// bcrypt ignores everything past 72 bytes, so longer passwords are refused
// instead of silently truncated.
const maxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password longer than 72 bytes")

func HashPassword(p string) (string, error) {
	if len(p) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(plain, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
