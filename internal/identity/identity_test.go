package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	k := KeyFromSeed([]byte("alice"))
	env, err := k.Sign("deposit", []byte(`{"amount":5}`))
	require.NoError(t, err)

	id, err := Verify(env)
	require.NoError(t, err)
	assert.Equal(t, k.Identity(), id)
	assert.Len(t, string(id), 40)
}

func TestVerify_Tampered(t *testing.T) {
	k := GenerateKey()
	env, err := k.Sign("deposit", []byte(`{"amount":5}`))
	require.NoError(t, err)

	payload := env
	payload.Payload = []byte(`{"amount":500}`)
	_, err = Verify(payload)
	require.ErrorIs(t, err, ErrInvalidSignature)

	action := env
	action.Action = "toggle_active"
	_, err = Verify(action)
	require.ErrorIs(t, err, ErrInvalidSignature)

	other := env
	other.PubKey = GenerateKey().PubKey()
	_, err = Verify(other)
	require.ErrorIs(t, err, ErrInvalidSignature)

	short := env
	short.PubKey = []byte{1, 2, 3}
	_, err = Verify(short)
	require.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestParseKey(t *testing.T) {
	k := KeyFromSeed([]byte("bob"))
	back, err := ParseKey(k.Hex())
	require.NoError(t, err)
	assert.Equal(t, k.Identity(), back.Identity())

	_, err = ParseKey("zz")
	assert.Error(t, err)
	_, err = ParseKey("abcd")
	assert.Error(t, err)
}
