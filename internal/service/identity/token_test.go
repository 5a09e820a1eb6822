package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagemap/internal/domain/identity"
)

func TestJWTTokenManager_RoundTrip(t *testing.T) {
	m := NewJWTTokenManager("secret")

	token, err := m.GenerateToken("user-1", time.Hour)
	require.NoError(t, err)

	userID, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestJWTTokenManager_Rejects(t *testing.T) {
	m := NewJWTTokenManager("secret")
	token, err := m.GenerateToken("user-1", time.Hour)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTTokenManager("other").ValidateToken(token)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewJWTTokenManager("secret")
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.ValidateToken(token)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := m.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("empty subject", func(t *testing.T) {
		_, err := m.GenerateToken("", time.Hour)
		assert.ErrorIs(t, err, identity.ErrInvalidUserInput)
	})
}
