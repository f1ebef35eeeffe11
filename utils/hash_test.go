package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentKeyDeterministic(t *testing.T) {
	k1, err := ContentKey([]byte("hello"))
	require.NoError(t, err)
	k2, err := ContentKey([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)
	// Known SHA-256 of "hello".
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", k1)
}

func TestContentKeyDistinct(t *testing.T) {
	k1, err := ContentKey([]byte("hello"))
	require.NoError(t, err)
	k2, err := ContentKey([]byte("hello!"))
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestContentKeyEmptyPayload(t *testing.T) {
	_, err := ContentKey(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = ContentKey([]byte{})
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestStoragePathFor(t *testing.T) {
	key, err := ContentKey([]byte("hello"))
	require.NoError(t, err)

	path := StoragePathFor(key)
	assert.Equal(t, "images/2c/"+key, path)

	// Path derivation is stable for a given key.
	assert.Equal(t, path, StoragePathFor(key))
}
