package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/venuex-ticketing/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, []model.Role{model.RoleAttendee, model.RoleOrganizer}, 5)
	require.NoError(t, err)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, []model.Role{model.RoleAttendee, model.RoleOrganizer}, claims.RoleSet())
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 1, nil, 5)
	require.NoError(t, err)
	_, err = ParseAccessToken("other", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 1, nil, -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenHash(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	assert.Len(t, HashRefreshRaw(rt.Raw), 64)
	assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
}

func TestCheckPasswordPolicy(t *testing.T) {
	assert.ErrorIs(t, CheckPasswordPolicy("short"), ErrWeakPassword)
	assert.NoError(t, CheckPasswordPolicy("long enough"))
}
