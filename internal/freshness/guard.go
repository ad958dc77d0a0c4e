package freshness

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredential reports a refresh credential mismatch. Non-fatal; the
// cache stays untouched.
var ErrBadCredential = errors.New("freshness: refresh credential rejected")

// ErrNoCredentialConfigured reports that no refresh secret is configured at
// all, which disables manual invalidation entirely.
var ErrNoCredentialConfigured = errors.New("freshness: no refresh credential configured")

// Guard compares submitted refresh credentials against the configured
// secret. A bcrypt hash takes precedence over the plain secret when both are
// set; the plain comparison is constant-time.
type Guard struct {
	secret []byte
	hash   []byte
}

// NewGuard builds a guard from a plain secret and/or a bcrypt hash.
func NewGuard(secret, bcryptHash string) *Guard {
	g := &Guard{}
	if secret != "" {
		g.secret = []byte(secret)
	}
	if bcryptHash != "" {
		g.hash = []byte(bcryptHash)
	}
	return g
}

// Verify checks the candidate credential.
func (g *Guard) Verify(candidate string) error {
	if g == nil || (len(g.secret) == 0 && len(g.hash) == 0) {
		return ErrNoCredentialConfigured
	}
	if len(g.hash) > 0 {
		if err := bcrypt.CompareHashAndPassword(g.hash, []byte(candidate)); err != nil {
			return ErrBadCredential
		}
		return nil
	}
	if subtle.ConstantTimeCompare(g.secret, []byte(candidate)) != 1 {
		return ErrBadCredential
	}
	return nil
}
