// Package eos signs for EOSIO K1 keys.
package eos

import (
	"errors"
	"strings"

	"github.com/abcfe/abcfe-vault/plugins/internal/keyutil"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/btcsuite/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	PublicKeyPrefix = "EOS"
	SignaturePrefix = "SIG_K1_"

	wifPrefix byte = 0x80

	// nodes reject non-canonical signatures; signing retries with a
	// fresh nonce up to this many times
	maxSignAttempts = 64
)

var ErrNonCanonical = errors.New("eos: could not produce a canonical signature")

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Blockchain() prt.Blockchain { return prt.EOSIO }

func (p *Plugin) NewPrivateKey() ([]byte, error) {
	return keyutil.NewPrivateKey()
}

// PublicKey returns the legacy EOS... public key string
func (p *Plugin) PublicKey(privateKey []byte) (string, error) {
	key, err := keyutil.ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	return EncodePublicKey(key.PubKey()), nil
}

func EncodePublicKey(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeCompressed()
	checksum := keyutil.Ripemd160(raw)[:4]
	return PublicKeyPrefix + base58.Encode(append(raw, checksum...))
}

// BufferToHexPrivate exports the key in legacy WIF
func (p *Plugin) BufferToHexPrivate(privateKey []byte) (string, error) {
	if _, err := keyutil.ParsePrivateKey(privateKey); err != nil {
		return "", err
	}
	return base58.CheckEncode(privateKey, wifPrefix), nil
}

// Sign returns a SIG_K1_ signature over sha256(payload), or over payload
// itself when it is already a digest.
func (p *Plugin) Sign(payload []byte, publicKey string, arbitrary, isHash bool, privateKey []byte) (string, error) {
	key, err := keyutil.ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	if err := keyutil.CheckPublicKey(publicKey, EncodePublicKey(key.PubKey())); err != nil {
		return "", err
	}

	hash, err := keyutil.Digest(payload, isHash, keyutil.Sha256)
	if err != nil {
		return "", err
	}

	sig, err := signCanonical(key, hash)
	if err != nil {
		return "", err
	}
	return EncodeSignature(sig), nil
}

// EncodeSignature renders a 65 byte compact signature
func EncodeSignature(sig []byte) string {
	checksum := keyutil.Ripemd160(append(append([]byte(nil), sig...), "K1"...))[:4]
	return SignaturePrefix + base58.Encode(append(append([]byte(nil), sig...), checksum...))
}

// DecodeSignature reverses EncodeSignature and verifies the checksum
func DecodeSignature(s string) ([]byte, error) {
	if !strings.HasPrefix(s, SignaturePrefix) {
		return nil, errors.New("eos: missing signature prefix")
	}
	raw := base58.Decode(strings.TrimPrefix(s, SignaturePrefix))
	if len(raw) != 69 {
		return nil, errors.New("eos: bad signature length")
	}
	sig := raw[:65]
	if EncodeSignature(sig) != s {
		return nil, errors.New("eos: bad signature checksum")
	}
	return sig, nil
}

// signCanonical follows eosjs-ecc signHash: attempt n > 0 derives its
// RFC6979 nonce from sha256(hash || n zero bytes) while still signing hash.
func signCanonical(key *secp256k1.PrivateKey, hash []byte) ([]byte, error) {
	keyBytes := key.Serialize()
	defer keyutil.Zero(keyBytes)

	for attempt := 0; attempt < maxSignAttempts; attempt++ {
		nonceInput := hash
		if attempt > 0 {
			nonceInput = keyutil.Sha256(append(append([]byte(nil), hash...), make([]byte, attempt)...))
		}
		sig, ok := signCompact(key, keyBytes, hash, nonceInput)
		if ok && isCanonical(sig) {
			return sig, nil
		}
	}
	return nil, ErrNonCanonical
}

// signCompact produces [27+4+recid | R | S] with low S, the same steps as
// decred's ecdsa.SignCompact but with the nonce seeded from nonceInput
func signCompact(key *secp256k1.PrivateKey, keyBytes, hash, nonceInput []byte) ([]byte, bool) {
	k := secp256k1.NonceRFC6979(keyBytes, nonceInput, nil, nil, 0)
	defer k.Zero()

	var kG secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(k, &kG)
	kG.ToAffine()

	var r secp256k1.ModNScalar
	overflow := r.SetByteSlice(kG.X.Bytes()[:])
	if r.IsZero() {
		return nil, false
	}
	recid := byte(kG.Y.IsOddBit())
	if overflow {
		recid |= 2
	}

	var e secp256k1.ModNScalar
	e.SetByteSlice(hash)

	kinv := new(secp256k1.ModNScalar).InverseValNonConst(k)
	s := new(secp256k1.ModNScalar).Mul2(&key.Key, &r).Add(&e).Mul(kinv)
	if s.IsZero() {
		return nil, false
	}
	if s.IsOverHalfOrder() {
		s.Negate()
		recid ^= 1
	}

	rb, sb := r.Bytes(), s.Bytes()
	sig := make([]byte, 0, 65)
	sig = append(sig, 27+4+recid)
	sig = append(sig, rb[:]...)
	sig = append(sig, sb[:]...)
	return sig, true
}

// isCanonical is fc's is_canonical: R and S both positive and minimally
// encoded in 32 bytes
func isCanonical(sig []byte) bool {
	r, s := sig[1:33], sig[33:65]
	return r[0]&0x80 == 0 && !(r[0] == 0 && r[1]&0x80 == 0) &&
		s[0]&0x80 == 0 && !(s[0] == 0 && s[1]&0x80 == 0)
}
