package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripRole(t *testing.T) {
	svc := NewJWTService("secret", "")

	token, err := svc.GenerateToken("u-1", "finance", time.Minute)
	require.NoError(t, err)

	role, err := svc.RoleFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "finance", role)
}

func TestRoleFromTokenErrors(t *testing.T) {
	svc := NewJWTService("secret", "department")

	expired, err := svc.GenerateToken("u-1", "hr", -time.Minute)
	require.NoError(t, err)
	_, err = svc.RoleFromToken(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	other, err := NewJWTService("other", "department").GenerateToken("u-1", "hr", time.Minute)
	require.NoError(t, err)
	_, err = svc.RoleFromToken(other)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	noRole, err := svc.GenerateToken("u-1", "", time.Minute)
	require.NoError(t, err)
	_, err = svc.RoleFromToken(noRole)
	assert.ErrorIs(t, err, ErrNoRole)

	_, err = svc.RoleFromToken("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
