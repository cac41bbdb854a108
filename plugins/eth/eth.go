// Package eth signs for Ethereum accounts.
package eth

import (
	"fmt"

	"github.com/abcfe/abcfe-vault/plugins/internal/keyutil"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type Plugin struct{}

func keccak256(b []byte) []byte { return crypto.Keccak256(b) }

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Blockchain() prt.Blockchain { return prt.Ethereum }

func (p *Plugin) NewPrivateKey() ([]byte, error) {
	return keyutil.NewPrivateKey()
}

// PublicKey returns the checksummed account address
func (p *Plugin) PublicKey(privateKey []byte) (string, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", keyutil.ErrInvalidPrivateKey, err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

// BufferToHexPrivate returns the key as unprefixed hex, the form wallets import
func (p *Plugin) BufferToHexPrivate(privateKey []byte) (string, error) {
	if _, err := crypto.ToECDSA(privateKey); err != nil {
		return "", fmt.Errorf("%w: %v", keyutil.ErrInvalidPrivateKey, err)
	}
	return hexutil.Encode(privateKey)[2:], nil
}

// Sign returns 0x R||S||V with V in {27, 28}.
// Arbitrary payloads are hashed as EIP-191 personal messages.
func (p *Plugin) Sign(payload []byte, publicKey string, arbitrary, isHash bool, privateKey []byte) (string, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", keyutil.ErrInvalidPrivateKey, err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	if err := keyutil.CheckPublicKey(publicKey, address); err != nil {
		return "", err
	}

	var hash []byte
	switch {
	case arbitrary:
		hash = accounts.TextHash(payload)
	default:
		if hash, err = keyutil.Digest(payload, isHash, keccak256); err != nil {
			return "", err
		}
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
