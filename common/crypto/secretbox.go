package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// SealVersion is bound into every ciphertext as associated data
	SealVersion = 1

	boxInfo = "abcfe-vault secretbox v1"
)

var ErrDecryption = errors.New("crypto: decryption failed")

// Sealed is the persisted form of an encrypted value. The iv member is the
// structural marker that distinguishes ciphertext from plaintext.
type Sealed struct {
	Version int    `json:"v"`
	IV      []byte `json:"iv"`
	Data    []byte `json:"ct"`
}

// Clone returns an independent copy
func (s *Sealed) Clone() *Sealed {
	if s == nil {
		return nil
	}
	return &Sealed{
		Version: s.Version,
		IV:      append([]byte(nil), s.IV...),
		Data:    append([]byte(nil), s.Data...),
	}
}

// Equal reports whether both ciphertexts are byte-identical
func (s *Sealed) Equal(o *Sealed) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Version == o.Version && string(s.IV) == string(o.IV) && string(s.Data) == string(o.Data)
}

func boxKey(seed []byte) ([]byte, error) {
	if len(seed) == 0 {
		return nil, errors.New("crypto: empty seed")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, []byte(boxInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to expand seed: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext under seed with a fresh random IV
func Seal(seed, plaintext []byte) (*Sealed, error) {
	key, err := boxKey(seed)
	if err != nil {
		return nil, err
	}
	defer Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	return &Sealed{
		Version: SealVersion,
		IV:      iv,
		Data:    aead.Seal(nil, iv, plaintext, []byte{SealVersion}),
	}, nil
}

// Open decrypts s under seed. A wrong seed or any tampering yields ErrDecryption.
func Open(seed []byte, s *Sealed) ([]byte, error) {
	if s == nil || s.Version != SealVersion || len(s.IV) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: malformed ciphertext", ErrDecryption)
	}

	key, err := boxKey(seed)
	if err != nil {
		return nil, err
	}
	defer Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plain, err := aead.Open(nil, s.IV, s.Data, []byte{SealVersion})
	if err != nil {
		return nil, ErrDecryption
	}
	return plain, nil
}

// SealJSON encrypts the JSON encoding of v and returns the sealed structure as JSON
func SealJSON(seed []byte, v interface{}) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	defer Zero(plain)

	sealed, err := Seal(seed, plain)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sealed)
}

// OpenJSON reverses SealJSON and returns the decrypted JSON bytes
func OpenJSON(seed, blob []byte) ([]byte, error) {
	var sealed Sealed
	if err := json.Unmarshal(blob, &sealed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return Open(seed, &sealed)
}

// IsSealed reports whether raw JSON carries the ciphertext marker. No seed needed.
func IsSealed(raw []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	_, ok := fields["iv"]
	return ok
}
