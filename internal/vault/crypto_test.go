package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	key := DeriveKey("correct-horse-battery-staple", salt)

	blob, err := Seal(key, []byte("super secret password"))
	require.NoError(t, err)

	plain, err := Open(key, blob)
	require.NoError(t, err)
	assert.Equal(t, "super secret password", string(plain))
}

func TestOpenWrongKeyFails(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	key := DeriveKey("password-one", salt)
	wrongKey := DeriveKey("password-two", salt)

	blob, err := Seal(key, []byte("data"))
	require.NoError(t, err)

	_, err = Open(wrongKey, blob)
	assert.Error(t, err)
}

func TestVerifierRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	key := DeriveKey("hunter2", salt)

	blob, err := SealVerifier(key)
	require.NoError(t, err)
	assert.NoError(t, OpenVerifier(key, blob))

	wrongKey := DeriveKey("hunter3", salt)
	assert.ErrorIs(t, OpenVerifier(wrongKey, blob), ErrWrongPassword)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	k1 := DeriveKey("pw", salt)
	k2 := DeriveKey("pw", salt)
	assert.Equal(t, k1, k2)

	k3 := DeriveKey("pw", append([]byte{}, salt...))
	assert.Equal(t, k1, k3)
}
