package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/abcfe/abcfe-vault/plugins"
	"github.com/abcfe/abcfe-vault/prompt"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/abcfe/abcfe-vault/storage"
	"github.com/abcfe/abcfe-vault/vault"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ethNet = prt.Ethereum

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	db, err := storage.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	v := vault.New(db)
	require.NoError(t, v.Init(context.Background()))
	_, err = v.Unlock(context.Background(), "pw", true, "")
	require.NoError(t, err)
	return v
}

func newTestWallet(t *testing.T, p prompt.Prompter, opts ...Option) (*Wallet, *vault.Vault) {
	t.Helper()
	v := newTestVault(t)
	return NewWallet(v, plugins.Default(), p, opts...), v
}

func requireSignatureError(t *testing.T, err error, kind SignatureErrorKind) *SignatureError {
	t.Helper()
	var serr *SignatureError
	require.True(t, errors.As(err, &serr), "expected *SignatureError, got %v", err)
	assert.Equal(t, kind, serr.Kind)
	return serr
}

func TestSignEthereum(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t, prompt.Static(false))

	info, err := w.CreateKeypair(ctx, "main", prt.Ethereum)
	require.NoError(t, err)
	require.Len(t, info.PublicKeys, 1)
	addr := info.PublicKeys[0].Key

	payload := []byte("tx bytes")
	sig, err := w.Sign(ctx, prt.Network{Blockchain: ethNet}, addr, payload, false, false)
	require.NoError(t, err)
	assert.Equal(t, addr, sig.PublicKey)

	raw, err := hexutil.Decode(sig.Value)
	require.NoError(t, err)
	raw[64] -= 27
	pub, err := crypto.SigToPub(crypto.Keccak256(payload), raw)
	require.NoError(t, err)
	assert.Equal(t, addr, crypto.PubkeyToAddress(*pub).Hex())
}

func TestSignEveryChain(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t, prompt.Static(false))

	info, err := w.CreateKeypair(ctx, "multi", prt.Blockchains()...)
	require.NoError(t, err)
	require.Len(t, info.PublicKeys, len(prt.Blockchains()))

	for _, pk := range info.PublicKeys {
		sig, err := w.Sign(ctx, prt.Network{Blockchain: pk.Blockchain}, pk.Key, []byte("payload"), false, false)
		require.NoError(t, err, pk.Blockchain)
		assert.NotEmpty(t, sig.Value)
	}
}

func TestSignUnknownChain(t *testing.T) {
	w, _ := newTestWallet(t, prompt.Static(false))

	sig, err := w.Sign(context.Background(), prt.Network{Blockchain: "dogecoin"}, "D...", []byte("x"), false, false)
	assert.Nil(t, sig)
	serr := requireSignatureError(t, err, KindUnsupportedChain)
	assert.ErrorIs(t, serr, plugins.ErrUnsupportedChain)
}

func TestSignNoKeypair(t *testing.T) {
	w, _ := newTestWallet(t, prompt.Static(false))

	_, err := w.Sign(context.Background(), prt.Network{Blockchain: ethNet}, "0xnobody", []byte("x"), false, false)
	serr := requireSignatureError(t, err, KindNoKeypair)
	assert.Equal(t, "This keypair could not be found", serr.Message)
}

func TestSignLocked(t *testing.T) {
	ctx := context.Background()
	w, v := newTestWallet(t, prompt.Static(false))

	info, err := w.CreateKeypair(ctx, "main", prt.Ethereum)
	require.NoError(t, err)
	v.Lock(ctx)

	sig, err := w.Sign(ctx, prt.Network{Blockchain: ethNet}, info.PublicKeys[0].Key, []byte("x"), false, false)
	assert.Nil(t, sig)
	serr := requireSignatureError(t, err, KindSignError)
	assert.ErrorIs(t, serr, vault.ErrLocked)
}

// panicPlugin blows up inside Sign
type panicPlugin struct{ plugins.Plugin }

func (p panicPlugin) Blockchain() prt.Blockchain { return ethNet }

func (p panicPlugin) Sign([]byte, string, bool, bool, []byte) (string, error) {
	panic("plugin bug")
}

func TestSignRecoversPluginPanic(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t, prompt.Static(false))
	info, err := w.CreateKeypair(ctx, "main", prt.Ethereum)
	require.NoError(t, err)

	w.plugins.Register(panicPlugin{})

	sig, err := w.Sign(ctx, prt.Network{Blockchain: ethNet}, info.PublicKeys[0].Key, []byte("x"), false, false)
	assert.Nil(t, sig)
	requireSignatureError(t, err, KindSignError)
}

// blockingSigner waits for release before answering
type blockingSigner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSigner) Types() []string { return []string{"ledger"} }

func (b *blockingSigner) PublicKey(ctx context.Context, chain prt.Blockchain, index int) (string, error) {
	return "hw-pub", nil
}

func (b *blockingSigner) Sign(ctx context.Context, kp vault.Keypair, network prt.Network, publicKey string, payload []byte, arbitrary, isHash bool) (string, error) {
	close(b.started)
	<-b.release
	return "hw-signature", nil
}

func TestSignHardware(t *testing.T) {
	ctx := context.Background()
	hw := &blockingSigner{started: make(chan struct{}), release: make(chan struct{})}
	w, _ := newTestWallet(t, prompt.Static(false), WithHardware(hw))

	_, err := w.AddHardwareKeypair(ctx, "ledger", vault.External{Type: "ledger"},
		vault.PublicKey{Key: "hw-pub", Blockchain: ethNet})
	require.NoError(t, err)

	close(hw.release)
	sig, err := w.Sign(ctx, prt.Network{Blockchain: ethNet}, "hw-pub", []byte("x"), false, false)
	require.NoError(t, err)
	assert.Equal(t, "hw-signature", sig.Value)

	assert.Equal(t, []string{"ledger"}, w.HardwareTypes())
	key, err := w.GetHardwareKey(ctx, ethNet, 0)
	require.NoError(t, err)
	assert.Equal(t, "hw-pub", key)
}

func TestSignHardwareUnsupported(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t, prompt.Static(false))

	_, err := w.AddHardwareKeypair(ctx, "ledger", vault.External{Type: "ledger"},
		vault.PublicKey{Key: "hw-pub", Blockchain: ethNet})
	require.NoError(t, err)

	_, err = w.Sign(ctx, prt.Network{Blockchain: ethNet}, "hw-pub", []byte("x"), false, false)
	requireSignatureError(t, err, KindHardwareUnsupported)

	assert.Empty(t, w.HardwareTypes())
	_, err = w.GetHardwareKey(ctx, ethNet, 0)
	assert.ErrorIs(t, err, ErrHardwareUnsupported)
}

func TestSignInFlightAcrossLock(t *testing.T) {
	ctx := context.Background()
	hw := &blockingSigner{started: make(chan struct{}), release: make(chan struct{})}
	w, v := newTestWallet(t, prompt.Static(false), WithHardware(hw))

	_, err := w.AddHardwareKeypair(ctx, "ledger", vault.External{Type: "ledger"},
		vault.PublicKey{Key: "hw-pub", Blockchain: ethNet})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := w.Sign(ctx, prt.Network{Blockchain: ethNet}, "hw-pub", []byte("x"), false, false)
		done <- err
	}()

	<-hw.started
	v.Lock(ctx)
	_, err = v.Unlock(ctx, "pw", false, "")
	require.NoError(t, err)
	close(hw.release)

	serr := requireSignatureError(t, <-done, KindSignError)
	assert.ErrorIs(t, serr, vault.ErrLocked)
}

func TestGetPrivateKey(t *testing.T) {
	ctx := context.Background()
	var asked []string
	p := prompt.Func(func(ctx context.Context, title, message string) (bool, error) {
		asked = append(asked, title)
		return true, nil
	})
	w, _ := newTestWallet(t, p)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	raw := crypto.FromECDSA(key)

	info, err := w.ImportKeypair(ctx, "imported", raw, prt.Ethereum)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), info.PublicKeys[0].Key)

	out, err := w.GetPrivateKey(ctx, info.ID, prt.Ethereum)
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(raw)[2:], out)
	assert.Equal(t, []string{"Exporting a private key."}, asked)

	_, err = w.GetPrivateKey(ctx, "missing", prt.Ethereum)
	assert.ErrorIs(t, err, vault.ErrKeypairNotFound)
	assert.Len(t, asked, 1)
}

func TestGetPrivateKeyLockedNeverPrompts(t *testing.T) {
	ctx := context.Background()
	prompted := false
	p := prompt.Func(func(ctx context.Context, title, message string) (bool, error) {
		prompted = true
		return true, nil
	})
	w, v := newTestWallet(t, p)

	info, err := w.CreateKeypair(ctx, "main", prt.Ethereum)
	require.NoError(t, err)
	hw, err := w.AddHardwareKeypair(ctx, "ledger", vault.External{Type: "ledger"})
	require.NoError(t, err)

	_, err = w.GetPrivateKey(ctx, hw.ID, prt.Ethereum)
	assert.ErrorIs(t, err, vault.ErrExternalKey)

	v.Lock(ctx)
	out, err := w.GetPrivateKey(ctx, info.ID, prt.Ethereum)
	assert.ErrorIs(t, err, vault.ErrLocked)
	assert.Empty(t, out)
	assert.False(t, prompted)
}

func TestGetPrivateKeyDeclined(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t, prompt.Static(false))

	info, err := w.CreateKeypair(ctx, "main", prt.Ethereum)
	require.NoError(t, err)

	out, err := w.GetPrivateKey(ctx, info.ID, prt.Ethereum)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGetPrivateKeyLockedDuringPrompt(t *testing.T) {
	ctx := context.Background()
	var v *vault.Vault
	p := prompt.Func(func(ctx context.Context, title, message string) (bool, error) {
		// the user takes long enough for the vault to lock and unlock again
		v.Lock(ctx)
		_, err := v.Unlock(ctx, "pw", false, "")
		require.NoError(t, err)
		return true, nil
	})
	w, tv := newTestWallet(t, p)
	v = tv

	info, err := w.CreateKeypair(ctx, "main", prt.Ethereum)
	require.NoError(t, err)

	out, err := w.GetPrivateKey(ctx, info.ID, prt.Ethereum)
	assert.ErrorIs(t, err, vault.ErrLocked)
	assert.Empty(t, out)
}

func TestKeypairManagement(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t, prompt.Static(false))

	_, err := w.CreateKeypair(ctx, "none")
	assert.ErrorIs(t, err, ErrNoBlockchains)

	_, err = w.CreateKeypair(ctx, "bad", "dogecoin")
	assert.ErrorIs(t, err, plugins.ErrUnsupportedChain)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	raw := crypto.FromECDSA(key)

	first, err := w.ImportKeypair(ctx, "a", raw, prt.Ethereum, prt.Tron)
	require.NoError(t, err)
	_, err = w.ImportKeypair(ctx, "a again", raw, prt.Ethereum)
	assert.ErrorIs(t, err, vault.ErrDuplicateID)

	list, err := w.Keypairs()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
	assert.False(t, list[0].External)

	require.NoError(t, w.RemoveKeypair(ctx, first.ID))
	assert.ErrorIs(t, w.RemoveKeypair(ctx, first.ID), vault.ErrKeypairNotFound)

	list, err = w.Keypairs()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAvailableBlockchains(t *testing.T) {
	w, _ := newTestWallet(t, prompt.Static(false))
	assert.Equal(t, map[string]prt.Blockchain{
		"EOSIO": prt.EOSIO,
		"ETH":   prt.Ethereum,
		"TRX":   prt.Tron,
		"BTC":   prt.Bitcoin,
	}, w.AvailableBlockchains())
}
