package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/scrypt"
)

// scrypt work factors. Changing any of these makes existing vaults unreadable.
const (
	ScryptN      = 16384
	ScryptR      = 8
	ScryptP      = 1
	ScryptKeyLen = 16 // 128 bits of bip39 entropy

	SaltSize = 32
	SeedSize = 64
)

var ErrInvalidSalt = errors.New("crypto: invalid salt")

// NewSalt returns a fresh random salt as hex
func NewSalt() (string, error) {
	b := make([]byte, SaltSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// DeriveSeed turns a password and salt into the vault seed.
//
// The scrypt output is used as bip39 entropy; the resulting mnemonic is then
// stretched by the standard mnemonic-to-seed transform with an empty
// passphrase. The same (password, salt) always yields the same seed.
func DeriveSeed(password, salt string) ([]byte, error) {
	if salt == "" {
		return nil, ErrInvalidSalt
	}

	pw := []byte(password)
	defer Zero(pw)

	dk, err := scrypt.Key(pw, []byte(salt), ScryptN, ScryptR, ScryptP, ScryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer Zero(dk)

	mnemonic, err := bip39.NewMnemonic(dk)
	if err != nil {
		return nil, fmt.Errorf("failed to build mnemonic: %w", err)
	}

	return bip39.NewSeed(mnemonic, ""), nil
}

// Zero overwrites b with zeros
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
