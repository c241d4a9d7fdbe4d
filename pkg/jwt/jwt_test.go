package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour)
	id := uuid.New()

	token, err := m.GenerateToken(id, "alice", "manager", "v1")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, "v1", claims.TokenVersion)
}

func TestManager_WrongSecret(t *testing.T) {
	token, err := NewManager("one", time.Hour).GenerateToken(uuid.New(), "a", "staff", "v")
	require.NoError(t, err)

	_, err = NewManager("two", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Expired(t *testing.T) {
	m := NewManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := m.GenerateToken(uuid.New(), "a", "staff", "v")
	require.NoError(t, err)

	_, err = NewManager("secret", time.Minute).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Missing(t *testing.T) {
	_, err := NewManager("secret", time.Minute).ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}
