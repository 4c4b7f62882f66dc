package auth

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
)

// MaxPasswordLength is the longest password, in bytes, that is hashed or
// compared.
const MaxPasswordLength = 256

var (
	ErrPasswordTooLong = fmt.Errorf("password exceeds %d bytes", MaxPasswordLength)
	ErrMalformedHash   = errors.New("stored password hash is malformed")
)

// OperatorPasswordParams are the argon2id settings for dashboard operator
// accounts.
var OperatorPasswordParams = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  1,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	return argon2id.CreateHash(password, OperatorPasswordParams)
}

// ComparePassword reports whether password matches hash. Over-long input is a
// plain mismatch; an undecodable hash is ErrMalformedHash.
func ComparePassword(password, hash string) (bool, error) {
	if len(password) > MaxPasswordLength {
		return false, nil
	}
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	return match, nil
}
