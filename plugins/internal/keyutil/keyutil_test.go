package keyutil

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivateKey(t *testing.T) {
	key, err := NewPrivateKey()
	require.NoError(t, err)
	require.Len(t, key, PrivateKeySize)

	parsed, err := ParsePrivateKey(key)
	require.NoError(t, err)
	assert.Equal(t, key, parsed.Serialize())

	_, err = ParsePrivateKey(key[:31])
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = ParsePrivateKey(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	// secp256k1 group order n is out of range
	n, _ := hex.DecodeString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	_, err = ParsePrivateKey(n)
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestHash160(t *testing.T) {
	// hash160 of the empty string
	assert.Equal(t, "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb", hex.EncodeToString(Hash160(nil)))
}

func TestDigest(t *testing.T) {
	d, err := Digest([]byte("abc"), false, Sha256)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", hex.EncodeToString(d))

	h := make([]byte, 32)
	d, err = Digest(h, true, Sha256)
	require.NoError(t, err)
	assert.Equal(t, h, d)

	_, err = Digest([]byte("short"), true, Sha256)
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestCheckPublicKey(t *testing.T) {
	assert.NoError(t, CheckPublicKey("", "abc"))
	assert.NoError(t, CheckPublicKey("abc", "abc"))
	assert.ErrorIs(t, CheckPublicKey("abd", "abc"), ErrKeyMismatch)
}
