package wallet

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/abcfe/abcfe-vault/common/logger"
	"github.com/abcfe/abcfe-vault/plugins"
	"github.com/abcfe/abcfe-vault/prompt"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/abcfe/abcfe-vault/vault"
)

const (
	exportTitle   = "Exporting a private key."
	exportMessage = "Something has requested a private key. Are you currently exporting a private key from this vault?"
)

// Wallet dispatches signing and key export to the blockchain plugins.
// It never holds plaintext keys; every key is decrypted inside one call.
type Wallet struct {
	vault    *vault.Vault
	plugins  *plugins.Registry
	prompter prompt.Prompter
	hardware HardwareSigner
}

type Option func(*Wallet)

func WithHardware(h HardwareSigner) Option {
	return func(w *Wallet) {
		w.hardware = h
	}
}

func NewWallet(v *vault.Vault, registry *plugins.Registry, prompter prompt.Prompter, opts ...Option) *Wallet {
	w := &Wallet{
		vault:    v,
		plugins:  registry,
		prompter: prompter,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Sign signs payload with the keypair owning publicKey on network's chain.
// Every failure, including a panic inside a plugin, comes back as a
// *SignatureError. A lock at any point before the key is decrypted makes the
// call fail.
func (w *Wallet) Sign(ctx context.Context, network prt.Network, publicKey string, payload []byte, arbitrary, isHash bool) (sig *Signature, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("signing panic: ", r, "\n", string(debug.Stack()))
			sig, err = nil, newSignatureError(KindSignError, "There was an error signing this transaction.", fmt.Errorf("panic: %v", r))
		}
	}()

	// captured before anything can suspend
	epoch := w.vault.Epoch()

	plugin, lerr := w.plugins.Lookup(network.Blockchain)
	if lerr != nil {
		return nil, newSignatureError(KindUnsupportedChain, "This blockchain is not supported.", lerr)
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, newSignatureError(KindSignError, "Signing was cancelled.", cerr)
	}

	keychain, kerr := w.vault.Keychain()
	if kerr != nil {
		return nil, newSignatureError(KindSignError, "There was an error signing this transaction.", kerr)
	}
	keypair, ok := keychain.FindByPublicKey(publicKey)
	if !ok {
		return nil, newSignatureError(KindNoKeypair, "This keypair could not be found", vault.ErrKeypairNotFound)
	}

	if keypair.External != nil {
		return w.signWithHardware(ctx, epoch, keypair, network, publicKey, payload, arbitrary, isHash)
	}

	var value string
	perr := w.vault.WithPrivateKey(epoch, keypair.ID, func(privateKey []byte) error {
		var serr error
		value, serr = plugin.Sign(payload, publicKey, arbitrary, isHash, privateKey)
		return serr
	})
	if perr != nil {
		logger.Warn("signing failed: ", perr)
		return nil, newSignatureError(KindSignError, "There was an error signing this transaction.", perr)
	}

	return &Signature{Blockchain: network.Blockchain, PublicKey: publicKey, Value: value}, nil
}

func (w *Wallet) signWithHardware(ctx context.Context, epoch uint64, keypair vault.Keypair, network prt.Network, publicKey string, payload []byte, arbitrary, isHash bool) (*Signature, error) {
	if w.hardware == nil {
		return nil, newSignatureError(KindHardwareUnsupported, "Hardware signing is not supported.", ErrHardwareUnsupported)
	}

	value, err := w.hardware.Sign(ctx, keypair, network, publicKey, payload, arbitrary, isHash)
	if err != nil {
		if errors.Is(err, ErrHardwareUnsupported) {
			return nil, newSignatureError(KindHardwareUnsupported, "Hardware signing is not supported.", err)
		}
		return nil, newSignatureError(KindSignError, "There was an error signing this transaction.", err)
	}

	// The device may have waited on the user; do not return across a lock
	if w.vault.Epoch() != epoch || !w.vault.IsUnlocked() {
		return nil, newSignatureError(KindSignError, "The vault was locked while signing.", vault.ErrLocked)
	}
	return &Signature{Blockchain: network.Blockchain, PublicKey: publicKey, Value: value}, nil
}

// GetPrivateKey exports a private key in the chain's text form after the
// user consents. A refusal returns ("", nil) and decrypts nothing. The user
// is only asked when the vault is unlocked and holds the key.
func (w *Wallet) GetPrivateKey(ctx context.Context, keypairID string, blockchain prt.Blockchain) (string, error) {
	epoch := w.vault.Epoch()

	plugin, err := w.plugins.Lookup(blockchain)
	if err != nil {
		return "", err
	}

	keychain, err := w.vault.Keychain()
	if err != nil {
		return "", err
	}
	keypair, ok := keychain.FindKeypair(keypairID)
	if !ok {
		return "", vault.ErrKeypairNotFound
	}
	if keypair.External != nil {
		return "", vault.ErrExternalKey
	}

	accepted, err := w.prompter.Accepted(ctx, exportTitle, exportMessage)
	if err != nil {
		return "", fmt.Errorf("consent prompt failed: %w", err)
	}
	if !accepted {
		logger.Info("private key export declined")
		return "", nil
	}

	var out string
	err = w.vault.WithPrivateKey(epoch, keypairID, func(privateKey []byte) error {
		var herr error
		out, herr = plugin.BufferToHexPrivate(privateKey)
		return herr
	})
	if err != nil {
		return "", err
	}
	logger.Info("private key exported for keypair ", keypairID)
	return out, nil
}

// AvailableBlockchains maps display names to chain ids for registered chains
func (w *Wallet) AvailableBlockchains() map[string]prt.Blockchain {
	names := map[prt.Blockchain]string{
		prt.EOSIO:    "EOSIO",
		prt.Ethereum: "ETH",
		prt.Tron:     "TRX",
		prt.Bitcoin:  "BTC",
	}

	out := make(map[string]prt.Blockchain)
	for _, chain := range w.plugins.Blockchains() {
		name, ok := names[chain]
		if !ok {
			name = strings.ToUpper(chain.String())
		}
		out[name] = chain
	}
	return out
}

// HardwareTypes lists supported device types, empty without a hardware signer
func (w *Wallet) HardwareTypes() []string {
	if w.hardware == nil {
		return []string{}
	}
	return w.hardware.Types()
}

// GetHardwareKey reads the public key at index from the attached device
func (w *Wallet) GetHardwareKey(ctx context.Context, blockchain prt.Blockchain, index int) (string, error) {
	if w.hardware == nil {
		return "", ErrHardwareUnsupported
	}
	return w.hardware.PublicKey(ctx, blockchain, index)
}
