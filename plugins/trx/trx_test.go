package trx

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/abcfe/abcfe-vault/plugins/internal/keyutil"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	p := New()
	assert.Equal(t, prt.Tron, p.Blockchain())

	key, err := p.NewPrivateKey()
	require.NoError(t, err)

	addr, err := p.PublicKey(key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "T"))
	assert.Len(t, addr, 34)

	payload, version, err := base58.CheckDecode(addr)
	require.NoError(t, err)
	assert.Equal(t, AddressPrefix, version)
	assert.Len(t, payload, 20)
}

func TestSign(t *testing.T) {
	p := New()
	key, err := p.NewPrivateKey()
	require.NoError(t, err)
	addr, err := p.PublicKey(key)
	require.NoError(t, err)

	rawTx := []byte{0x0a, 0x02, 0x01, 0x02}
	sigHex, err := p.Sign(rawTx, addr, false, false, key)
	require.NoError(t, err)

	sig, err := hex.DecodeString(sigHex)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	sig[64] -= 27

	pub, err := crypto.SigToPub(keyutil.Sha256(rawTx), sig)
	require.NoError(t, err)
	assert.Equal(t, addr, base58.CheckEncode(crypto.PubkeyToAddress(*pub).Bytes(), AddressPrefix))

	_, err = p.Sign(rawTx, "TXYZ", false, false, key)
	assert.ErrorIs(t, err, keyutil.ErrKeyMismatch)
}

func TestSignArbitrary(t *testing.T) {
	p := New()
	key, err := p.NewPrivateKey()
	require.NoError(t, err)

	sigHex, err := p.Sign([]byte("hello"), "", true, false, key)
	require.NoError(t, err)
	sig, _ := hex.DecodeString(sigHex)
	sig[64] -= 27

	pub, err := crypto.SigToPub(TextHash([]byte("hello")), sig)
	require.NoError(t, err)
	ecKey, _ := crypto.ToECDSA(key)
	assert.Equal(t, crypto.PubkeyToAddress(ecKey.PublicKey), crypto.PubkeyToAddress(*pub))
}

func TestBufferToHexPrivate(t *testing.T) {
	p := New()
	key, _ := p.NewPrivateKey()
	got, err := p.BufferToHexPrivate(key)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(key), got)

	_, err = p.BufferToHexPrivate(nil)
	assert.ErrorIs(t, err, keyutil.ErrInvalidPrivateKey)
}
