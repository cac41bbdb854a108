package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/abcfe/abcfe-vault/common/crypto"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/abcfe/abcfe-vault/vault"
)

var ErrNoBlockchains = errors.New("at least one blockchain is required")

// KeypairInfo is the public view of a keypair
type KeypairInfo struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	PublicKeys []vault.PublicKey `json:"publicKeys"`
	External   bool              `json:"external"`
	CreatedAt  int64             `json:"createdAt"`
}

func newKeypairInfo(kp vault.Keypair) KeypairInfo {
	return KeypairInfo{
		ID:         kp.ID,
		Name:       kp.Name,
		PublicKeys: append([]vault.PublicKey{}, kp.PublicKeys...),
		External:   kp.External != nil,
		CreatedAt:  kp.CreatedAt,
	}
}

// Keypairs lists the keychain without any secret field
func (w *Wallet) Keypairs() ([]KeypairInfo, error) {
	kc, err := w.vault.Keychain()
	if err != nil {
		return nil, err
	}
	out := make([]KeypairInfo, 0, len(kc.Keypairs))
	for _, kp := range kc.Keypairs {
		out = append(out, newKeypairInfo(kp))
	}
	return out, nil
}

// CreateKeypair generates a secp256k1 key and stores it with one public key per chain
func (w *Wallet) CreateKeypair(ctx context.Context, name string, chains ...prt.Blockchain) (KeypairInfo, error) {
	if len(chains) == 0 {
		return KeypairInfo{}, ErrNoBlockchains
	}
	plugin, err := w.plugins.Lookup(chains[0])
	if err != nil {
		return KeypairInfo{}, err
	}
	key, err := plugin.NewPrivateKey()
	if err != nil {
		return KeypairInfo{}, fmt.Errorf("failed to generate key: %w", err)
	}
	defer crypto.Zero(key)

	return w.ImportKeypair(ctx, name, key, chains...)
}

// ImportKeypair stores an existing raw private key. The key is sealed
// before the call returns; the caller still owns and should wipe privateKey.
func (w *Wallet) ImportKeypair(ctx context.Context, name string, privateKey []byte, chains ...prt.Blockchain) (KeypairInfo, error) {
	if len(chains) == 0 {
		return KeypairInfo{}, ErrNoBlockchains
	}

	publicKeys := make([]vault.PublicKey, 0, len(chains))
	for _, chain := range chains {
		plugin, err := w.plugins.Lookup(chain)
		if err != nil {
			return KeypairInfo{}, err
		}
		pub, err := plugin.PublicKey(privateKey)
		if err != nil {
			return KeypairInfo{}, fmt.Errorf("%s: %w", chain, err)
		}
		publicKeys = append(publicKeys, vault.PublicKey{Key: pub, Blockchain: chain})
	}

	kp := vault.NewKeypair(name, privateKey, publicKeys...)
	err := w.vault.UpdateKeychain(ctx, func(kc *vault.Keychain) error {
		for _, pk := range publicKeys {
			if _, exists := kc.FindByPublicKey(pk.Key); exists {
				return fmt.Errorf("%w: public key %s", vault.ErrDuplicateID, pk.Key)
			}
		}
		kc.Keypairs = append(kc.Keypairs, kp)
		return nil
	})
	if err != nil {
		return KeypairInfo{}, err
	}
	return newKeypairInfo(kp), nil
}

// AddHardwareKeypair records a device-held key; no secret enters the vault
func (w *Wallet) AddHardwareKeypair(ctx context.Context, name string, ext vault.External, publicKeys ...vault.PublicKey) (KeypairInfo, error) {
	kp := vault.NewHardwareKeypair(name, ext, publicKeys...)
	err := w.vault.UpdateKeychain(ctx, func(kc *vault.Keychain) error {
		kc.Keypairs = append(kc.Keypairs, kp)
		return nil
	})
	if err != nil {
		return KeypairInfo{}, err
	}
	return newKeypairInfo(kp), nil
}

func (w *Wallet) RemoveKeypair(ctx context.Context, id string) error {
	return w.vault.UpdateKeychain(ctx, func(kc *vault.Keychain) error {
		for i, kp := range kc.Keypairs {
			if kp.ID == id {
				kc.Keypairs = append(kc.Keypairs[:i], kc.Keypairs[i+1:]...)
				return nil
			}
		}
		return vault.ErrKeypairNotFound
	})
}
