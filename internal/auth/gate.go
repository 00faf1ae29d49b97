package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator decides whether a presented secret grants admin rights.
type Authenticator interface {
	Authenticate(secret string) bool
}

// StaticSecret grants admin to a single shared secret. When a bcrypt hash is
// configured it takes precedence over the plaintext value.
type StaticSecret struct {
	plain []byte
	hash  []byte
}

func NewStaticSecret(plain, hash string) (*StaticSecret, error) {
	hash = strings.TrimSpace(hash)
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, errors.New("admin password hash is not a bcrypt hash")
		}
		return &StaticSecret{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return nil, errors.New("admin secret is empty")
	}
	return &StaticSecret{plain: []byte(plain)}, nil
}

func (s *StaticSecret) Authenticate(secret string) bool {
	if secret == "" {
		return false
	}
	if s.hash != nil {
		return bcrypt.CompareHashAndPassword(s.hash, []byte(secret)) == nil
	}
	return subtle.ConstantTimeCompare(s.plain, []byte(secret)) == 1
}
