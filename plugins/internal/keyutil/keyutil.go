// Package keyutil holds the secp256k1 helpers shared by the chain plugins.
package keyutil

import (
	"crypto/sha256"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrKeyMismatch       = errors.New("private key does not match public key")
	ErrInvalidHash       = errors.New("hash payload must be 32 bytes")
)

const PrivateKeySize = 32

// ParsePrivateKey rejects anything that is not a 32 byte scalar in range
func ParsePrivateKey(b []byte) (*secp256k1.PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, ErrInvalidPrivateKey
	}
	var k secp256k1.ModNScalar
	if overflow := k.SetByteSlice(b); overflow || k.IsZero() {
		return nil, ErrInvalidPrivateKey
	}
	return secp256k1.NewPrivateKey(&k), nil
}

func NewPrivateKey() ([]byte, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return key.Serialize(), nil
}

func Sha256(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

func DoubleSha256(b []byte) []byte {
	return Sha256(Sha256(b))
}

func Ripemd160(b []byte) []byte {
	h := ripemd160.New()
	h.Write(b)
	return h.Sum(nil)
}

// Hash160 is ripemd160(sha256(b))
func Hash160(b []byte) []byte {
	return Ripemd160(Sha256(b))
}

// Digest returns payload itself when it is already a hash, otherwise hash(payload)
func Digest(payload []byte, isHash bool, hash func([]byte) []byte) ([]byte, error) {
	if !isHash {
		return hash(payload), nil
	}
	if len(payload) != 32 {
		return nil, ErrInvalidHash
	}
	return payload, nil
}

// CheckPublicKey compares the derived public key with the requested one.
// An empty expected key skips the check.
func CheckPublicKey(expected, derived string) error {
	if expected != "" && expected != derived {
		return ErrKeyMismatch
	}
	return nil
}

func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
