package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcore/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.CreateForUser("alice")
	require.NoError(t, err)

	userID, err := svc.VerifyUserID(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)
}

func TestTokenRejection(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.VerifyUserID("not-a-jwt")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenService("other-secret", time.Hour)
		token, err := other.CreateForUser("alice")
		require.NoError(t, err)
		_, err = svc.VerifyUserID(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("Expired", func(t *testing.T) {
		expired := NewTokenService("secret", -time.Minute)
		token, err := expired.CreateForUser("alice")
		require.NoError(t, err)
		_, err = svc.VerifyUserID(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("MissingSubject", func(t *testing.T) {
		anon := NewTokenService("secret", time.Hour)
		token, err := anon.CreateForUser("")
		require.NoError(t, err)
		_, err = svc.VerifyUserID(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
