package btc

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/abcfe/abcfe-vault/plugins/internal/keyutil"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func privOne() []byte {
	k := make([]byte, 32)
	k[31] = 1
	return k
}

func TestKnownVectors(t *testing.T) {
	p := New()
	assert.Equal(t, prt.Bitcoin, p.Blockchain())

	// private key 1
	addr, err := p.PublicKey(privOne())
	require.NoError(t, err)
	assert.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", addr)

	wif, err := p.BufferToHexPrivate(privOne())
	require.NoError(t, err)
	assert.Equal(t, "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn", wif)
}

func TestSignDER(t *testing.T) {
	p := New()
	key, err := p.NewPrivateKey()
	require.NoError(t, err)
	addr, err := p.PublicKey(key)
	require.NoError(t, err)

	tx := []byte("unsigned tx")
	sigHex, err := p.Sign(tx, addr, false, false, key)
	require.NoError(t, err)

	der, err := hex.DecodeString(sigHex)
	require.NoError(t, err)
	sig, err := ecdsa.ParseDERSignature(der)
	require.NoError(t, err)

	parsed, err := keyutil.ParsePrivateKey(key)
	require.NoError(t, err)
	assert.True(t, sig.Verify(keyutil.DoubleSha256(tx), parsed.PubKey()))

	_, err = p.Sign(tx, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", false, false, key)
	assert.ErrorIs(t, err, keyutil.ErrKeyMismatch)
}

func TestSignMessage(t *testing.T) {
	p := New()
	key, err := p.NewPrivateKey()
	require.NoError(t, err)

	sigB64, err := p.Sign([]byte("hello"), "", true, false, key)
	require.NoError(t, err)

	sig, err := base64.StdEncoding.DecodeString(sigB64)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	pub, compressed, err := ecdsa.RecoverCompact(sig, MessageHash([]byte("hello")))
	require.NoError(t, err)
	assert.True(t, compressed)

	parsed, _ := keyutil.ParsePrivateKey(key)
	assert.True(t, pub.IsEqual(parsed.PubKey()))
}
