package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	id := uuid.New()

	token, err := m.GenerateToken(id, "a@b.c", "Ana", "admin")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	token, err := NewManager("one", time.Hour).GenerateToken(uuid.New(), "a@b.c", "Ana", "staff")
	require.NoError(t, err)

	_, err = NewManager("two", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := m.GenerateToken(uuid.New(), "a@b.c", "Ana", "staff")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := NewManager("secret", time.Hour).ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
