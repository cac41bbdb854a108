// Package trx signs for Tron accounts.
package trx

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/abcfe/abcfe-vault/plugins/internal/keyutil"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the mainnet address version byte
const AddressPrefix byte = 0x41

const messagePrefix = "\x19TRON Signed Message:\n"

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Blockchain() prt.Blockchain { return prt.Tron }

func (p *Plugin) NewPrivateKey() ([]byte, error) {
	return keyutil.NewPrivateKey()
}

// PublicKey returns the base58check address (T...)
func (p *Plugin) PublicKey(privateKey []byte) (string, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", keyutil.ErrInvalidPrivateKey, err)
	}
	return base58.CheckEncode(crypto.PubkeyToAddress(key.PublicKey).Bytes(), AddressPrefix), nil
}

func (p *Plugin) BufferToHexPrivate(privateKey []byte) (string, error) {
	if _, err := keyutil.ParsePrivateKey(privateKey); err != nil {
		return "", err
	}
	return hex.EncodeToString(privateKey), nil
}

// TextHash hashes a personal message the way Tron wallets do
func TextHash(msg []byte) []byte {
	return crypto.Keccak256([]byte(messagePrefix+strconv.Itoa(len(msg))), msg)
}

// Sign returns hex R||S||V with V in {27, 28}. Transactions are signed over
// sha256 of the raw transaction.
func (p *Plugin) Sign(payload []byte, publicKey string, arbitrary, isHash bool, privateKey []byte) (string, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", keyutil.ErrInvalidPrivateKey, err)
	}
	address := base58.CheckEncode(crypto.PubkeyToAddress(key.PublicKey).Bytes(), AddressPrefix)
	if err := keyutil.CheckPublicKey(publicKey, address); err != nil {
		return "", err
	}

	var hash []byte
	if arbitrary {
		hash = TextHash(payload)
	} else if hash, err = keyutil.Digest(payload, isHash, keyutil.Sha256); err != nil {
		return "", err
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hex.EncodeToString(sig), nil
}
