package utils

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOwnerIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), OwnerIDCtxKey, int64(42))

	got, ok := GetOwnerIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(42), got)

	_, ok = GetOwnerIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestUUIDGenerator_UniqueAndNonEmpty(t *testing.T) {
	g := NewUUIDGenerator()

	id1 := g.Generate()
	id2 := g.Generate()

	require.NotEmpty(t, id1)
	require.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)
}

func TestHashString_DeterministicAndKeyed(t *testing.T) {
	h1 := HashString("payload", "key-a")
	h2 := HashString("payload", "key-a")
	h3 := HashString("payload", "key-b")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // hex-encoded SHA-256
}

func TestHash_PooledMatchesOneOff(t *testing.T) {
	InitHasherPool("pool-key")

	pooled := Hash([]byte("payload"))
	oneOff := hashString([]byte("payload"), "pool-key")

	assert.Equal(t, oneOff, pooled)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestCheckTokenFreshness(t *testing.T) {
	now := time.Now()

	t.Run("fresh token passes", func(t *testing.T) {
		err := CheckTokenFreshness(signedToken(t, now.Add(time.Hour)), now)
		assert.NoError(t, err)
	})

	t.Run("expired token reported", func(t *testing.T) {
		err := CheckTokenFreshness(signedToken(t, now.Add(-time.Hour)), now)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("garbage token is an error", func(t *testing.T) {
		err := CheckTokenFreshness("not-a-token", now)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrTokenExpired)
	})
}
