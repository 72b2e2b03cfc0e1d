package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newHasher(t *testing.T, pepper string) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(pepper, WithParams(fastParams))
	require.NoError(t, err)
	return h
}

func TestNewPasswordHasher_EmptyPepper(t *testing.T) {
	_, err := NewPasswordHasher("")
	assert.ErrorIs(t, err, ErrEmptyPepper)
}

func TestHashVerify_RoundTrip(t *testing.T) {
	h := newHasher(t, "pepper")

	hash, err := h.Hash("Secret123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"), hash)

	ok, err := h.Verify(hash, "Secret123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(hash, "Secret124")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := newHasher(t, "pepper")

	a, err := h.Hash("Secret123")
	require.NoError(t, err)
	b, err := h.Hash("Secret123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerify_PepperMatters(t *testing.T) {
	hash, err := newHasher(t, "pepper-one").Hash("Secret123")
	require.NoError(t, err)

	ok, err := newHasher(t, "pepper-two").Verify(hash, "Secret123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_UsesEmbeddedParams(t *testing.T) {
	hash, err := newHasher(t, "pepper").Hash("Secret123")
	require.NoError(t, err)

	stronger, err := NewPasswordHasher("pepper", WithParams(Params{Memory: 128, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}))
	require.NoError(t, err)

	ok, err := stronger.Verify(hash, "Secret123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_Malformed(t *testing.T) {
	h := newHasher(t, "pepper")

	for _, encoded := range []string{
		"",
		"plaintext-password",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=16$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=99999999,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=64,t=1,p=1$c2FsdA$",
	} {
		ok, err := h.Verify(encoded, "Secret123")
		assert.ErrorIs(t, err, ErrMalformedHash, encoded)
		assert.False(t, ok)
	}
}
