package account

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and compares passwords. The digest format is owned by the
// implementation; the service never inspects it.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher implements Hasher with bcrypt.
type BcryptHasher struct {
	// Cost overrides bcrypt.DefaultCost when positive. Tests lower it.
	Cost int
}

var _ Hasher = BcryptHasher{}

func (h BcryptHasher) Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	cost := h.Cost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Compare fails closed: an empty or malformed hash is a mismatch, never a
// crash. That keeps "no such user" and "wrong password" indistinguishable
// upstream.
func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
