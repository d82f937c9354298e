package db

import (
	"context"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	match, err := argon2id.ComparePasswordAndHash("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = argon2id.ComparePasswordAndHash("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestVerifyCredentialsWithoutConnection(t *testing.T) {
	store := NewUserStore(nil)
	_, err := store.VerifyCredentials(context.Background(), "ada", "secret")
	assert.ErrorIs(t, err, ErrUsersNotAvailable)
}
