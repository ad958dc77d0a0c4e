package freshness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGuardPlainSecret(t *testing.T) {
	g := NewGuard("letmein", "")

	assert.NoError(t, g.Verify("letmein"))
	assert.ErrorIs(t, g.Verify("nope"), ErrBadCredential)
	assert.ErrorIs(t, g.Verify(""), ErrBadCredential)
}

func TestGuardBcryptHashTakesPrecedence(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	g := NewGuard("ignored-plain", string(hash))
	assert.NoError(t, g.Verify("s3cret"))
	assert.ErrorIs(t, g.Verify("ignored-plain"), ErrBadCredential)
}

func TestGuardUnconfigured(t *testing.T) {
	g := NewGuard("", "")
	assert.ErrorIs(t, g.Verify("anything"), ErrNoCredentialConfigured)
}
