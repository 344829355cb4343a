package service

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminGate checks a single shared secret. The configured secret may be
// plain text or a bcrypt hash. An empty secret rejects every password.
type AdminGate struct {
	secret []byte
	hashed bool
}

func NewAdminGate(secret string) *AdminGate {
	return &AdminGate{
		secret: []byte(secret),
		hashed: isBcryptHash(secret),
	}
}

// Check returns nil when password matches, otherwise an ErrForbidden error.
func (g *AdminGate) Check(password string) error {
	if g == nil || len(g.secret) == 0 || password == "" {
		return newError(ErrForbidden, "Incorrect password.")
	}

	if g.hashed {
		if bcrypt.CompareHashAndPassword(g.secret, []byte(password)) == nil {
			return nil
		}
	} else if subtle.ConstantTimeCompare(g.secret, []byte(password)) == 1 {
		return nil
	}
	return newError(ErrForbidden, "Incorrect password.")
}

func isBcryptHash(s string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
