package plugins

import (
	"testing"

	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []prt.Blockchain{prt.Bitcoin, prt.EOSIO, prt.Ethereum, prt.Tron}, r.Blockchains())

	for _, chain := range prt.Blockchains() {
		p, err := r.Lookup(chain)
		require.NoError(t, err, chain)
		assert.Equal(t, chain, p.Blockchain())
	}

	_, err := r.Lookup("xrp")
	assert.ErrorIs(t, err, ErrUnsupportedChain)
}

// Every plugin must sign with the key it reports as its public key
func TestPluginsRoundTrip(t *testing.T) {
	r := Default()
	for _, chain := range r.Blockchains() {
		p, _ := r.Lookup(chain)

		key, err := p.NewPrivateKey()
		require.NoError(t, err)

		pub, err := p.PublicKey(key)
		require.NoError(t, err)
		assert.NotEmpty(t, pub)

		sig, err := p.Sign([]byte("payload"), pub, false, false, key)
		require.NoError(t, err, chain)
		assert.NotEmpty(t, sig)

		_, err = p.Sign([]byte("payload"), pub, false, false, []byte{1})
		assert.ErrorIs(t, err, ErrInvalidPrivateKey, chain)

		exported, err := p.BufferToHexPrivate(key)
		require.NoError(t, err)
		assert.NotEmpty(t, exported)
	}
}
