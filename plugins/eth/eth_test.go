package eth

import (
	"testing"

	"github.com/abcfe/abcfe-vault/plugins/internal/keyutil"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well-known test key (hardhat account #0)
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func testKeyBytes(t *testing.T) []byte {
	t.Helper()
	b, err := hexutil.Decode("0x" + testKey)
	require.NoError(t, err)
	return b
}

func recoverAddress(t *testing.T, hash []byte, sig string) string {
	t.Helper()
	raw, err := hexutil.Decode(sig)
	require.NoError(t, err)
	require.Len(t, raw, crypto.SignatureLength)
	require.Contains(t, []byte{27, 28}, raw[crypto.RecoveryIDOffset])

	raw[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(hash, raw)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(*pub).Hex()
}

func TestPublicKey(t *testing.T) {
	p := New()
	assert.Equal(t, prt.Ethereum, p.Blockchain())

	addr, err := p.PublicKey(testKeyBytes(t))
	require.NoError(t, err)
	assert.Equal(t, testAddress, addr)

	hexKey, err := p.BufferToHexPrivate(testKeyBytes(t))
	require.NoError(t, err)
	assert.Equal(t, testKey, hexKey)

	_, err = p.PublicKey([]byte{1, 2, 3})
	assert.ErrorIs(t, err, keyutil.ErrInvalidPrivateKey)
}

func TestSignTransactionHash(t *testing.T) {
	p := New()
	payload := []byte("raw transaction bytes")

	sig, err := p.Sign(payload, testAddress, false, false, testKeyBytes(t))
	require.NoError(t, err)
	assert.Equal(t, testAddress, recoverAddress(t, crypto.Keccak256(payload), sig))

	hash := crypto.Keccak256(payload)
	sig2, err := p.Sign(hash, testAddress, false, true, testKeyBytes(t))
	require.NoError(t, err)
	assert.Equal(t, sig, sig2)
}

func TestSignArbitrary(t *testing.T) {
	p := New()
	msg := []byte("hello world")

	sig, err := p.Sign(msg, "", true, false, testKeyBytes(t))
	require.NoError(t, err)
	assert.Equal(t, testAddress, recoverAddress(t, accounts.TextHash(msg), sig))
}

func TestSignRejectsWrongKey(t *testing.T) {
	p := New()
	_, err := p.Sign([]byte("x"), "0x0000000000000000000000000000000000000001", false, false, testKeyBytes(t))
	assert.ErrorIs(t, err, keyutil.ErrKeyMismatch)

	_, err = p.Sign([]byte("short"), testAddress, false, true, testKeyBytes(t))
	assert.ErrorIs(t, err, keyutil.ErrInvalidHash)
}
