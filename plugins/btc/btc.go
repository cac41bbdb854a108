// Package btc signs for Bitcoin P2PKH addresses.
package btc

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"

	"github.com/abcfe/abcfe-vault/plugins/internal/keyutil"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/btcsuite/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Mainnet version bytes
const (
	PubKeyHashPrefix byte = 0x00
	WIFPrefix        byte = 0x80
)

const messageMagic = "Bitcoin Signed Message:\n"

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Blockchain() prt.Blockchain { return prt.Bitcoin }

func (p *Plugin) NewPrivateKey() ([]byte, error) {
	return keyutil.NewPrivateKey()
}

// PublicKey returns the P2PKH address of the compressed public key
func (p *Plugin) PublicKey(privateKey []byte) (string, error) {
	key, err := keyutil.ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	return base58.CheckEncode(keyutil.Hash160(key.PubKey().SerializeCompressed()), PubKeyHashPrefix), nil
}

// BufferToHexPrivate exports the key as compressed WIF
func (p *Plugin) BufferToHexPrivate(privateKey []byte) (string, error) {
	if _, err := keyutil.ParsePrivateKey(privateKey); err != nil {
		return "", err
	}
	payload := append(append([]byte(nil), privateKey...), 0x01)
	return base58.CheckEncode(payload, WIFPrefix), nil
}

// MessageHash is the double sha256 of a Bitcoin signed message
func MessageHash(msg []byte) []byte {
	var buf bytes.Buffer
	writeVarString(&buf, []byte(messageMagic))
	writeVarString(&buf, msg)
	return keyutil.DoubleSha256(buf.Bytes())
}

// Sign returns a hex DER signature for transaction digests, or a base64
// compact signature for arbitrary messages.
func (p *Plugin) Sign(payload []byte, publicKey string, arbitrary, isHash bool, privateKey []byte) (string, error) {
	key, err := keyutil.ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	address := base58.CheckEncode(keyutil.Hash160(key.PubKey().SerializeCompressed()), PubKeyHashPrefix)
	if err := keyutil.CheckPublicKey(publicKey, address); err != nil {
		return "", err
	}

	if arbitrary {
		sig := ecdsa.SignCompact(key, MessageHash(payload), true)
		return base64.StdEncoding.EncodeToString(sig), nil
	}

	hash, err := keyutil.Digest(payload, isHash, keyutil.DoubleSha256)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ecdsa.Sign(key, hash).Serialize()), nil
}

func writeVarString(buf *bytes.Buffer, b []byte) {
	n := len(b)
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(0xfd)
		buf.WriteByte(byte(n))
		buf.WriteByte(byte(n >> 8))
	default:
		buf.WriteByte(0xfe)
		for i := 0; i < 4; i++ {
			buf.WriteByte(byte(n >> (8 * i)))
		}
	}
	buf.Write(b)
}
