package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_GenerateAndValidate(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, expiresIn, err := svc.GenerateActorToken("user1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, int64(3600), expiresIn)

	claims, err := svc.ValidateActorToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user1", claims.ActorID)
	assert.Equal(t, "vidsync", claims.Issuer)
}

func TestService_ValidateActorToken_WrongSecret(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	other := NewService("other-secret", time.Hour)

	token, _, err := svc.GenerateActorToken("user1")
	require.NoError(t, err)

	_, err = other.ValidateActorToken(token)
	assert.Error(t, err)
}

func TestService_ValidateActorToken_Expired(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)

	token, _, err := svc.GenerateActorToken("user1")
	require.NoError(t, err)

	_, err = svc.ValidateActorToken(token)
	assert.Error(t, err)
}

func TestService_ValidateActorToken_Garbage(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	_, err := svc.ValidateActorToken("not.a.token")
	assert.Error(t, err)
}
