package vault

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/abcfe/abcfe-vault/common/crypto"
)

// Secret is a secret field of the keychain. It is either plaintext or
// encrypted, never both; the zero value is an empty secret (no material,
// used by hardware keypairs).
type Secret struct {
	plain  []byte
	sealed *crypto.Sealed
}

// Plaintext wraps a copy of b
func Plaintext(b []byte) Secret {
	if len(b) == 0 {
		return Secret{}
	}
	return Secret{plain: append([]byte(nil), b...)}
}

func PlaintextString(s string) Secret {
	return Plaintext([]byte(s))
}

// Encrypted wraps a copy of an existing ciphertext
func Encrypted(s *crypto.Sealed) Secret {
	if s == nil {
		return Secret{}
	}
	return Secret{sealed: s.Clone()}
}

func (s Secret) IsEncrypted() bool { return s.sealed != nil }

func (s Secret) IsEmpty() bool { return s.sealed == nil && len(s.plain) == 0 }

// Bytes returns a copy of the plaintext, or nil when encrypted or empty
func (s Secret) Bytes() []byte {
	if s.plain == nil {
		return nil
	}
	return append([]byte(nil), s.plain...)
}

// Sealed returns a copy of the ciphertext, or nil when not encrypted
func (s Secret) Sealed() *crypto.Sealed {
	return s.sealed.Clone()
}

func (s Secret) Clone() Secret {
	return Secret{plain: s.Bytes(), sealed: s.sealed.Clone()}
}

// Equal compares tag and content
func (s Secret) Equal(o Secret) bool {
	if s.IsEncrypted() != o.IsEncrypted() {
		return false
	}
	if s.IsEncrypted() {
		return s.sealed.Equal(o.sealed)
	}
	return bytes.Equal(s.plain, o.plain)
}

// String never reveals content
func (s Secret) String() string {
	switch {
	case s.IsEmpty():
		return "Secret(empty)"
	case s.IsEncrypted():
		return "Secret(encrypted)"
	default:
		return "Secret(plaintext)"
	}
}

func (s Secret) GoString() string { return s.String() }

// encrypt seals plaintext under seed. Encrypted and empty secrets are returned unchanged.
func (s Secret) encrypt(seed []byte) (Secret, error) {
	if s.IsEncrypted() || s.IsEmpty() {
		return s.Clone(), nil
	}
	sealed, err := crypto.Seal(seed, s.plain)
	if err != nil {
		return Secret{}, err
	}
	return Secret{sealed: sealed}, nil
}

// decrypt opens ciphertext under seed. Plaintext and empty secrets are returned unchanged.
func (s Secret) decrypt(seed []byte) (Secret, error) {
	if !s.IsEncrypted() {
		return s.Clone(), nil
	}
	plain, err := crypto.Open(seed, s.sealed)
	if err != nil {
		return Secret{}, err
	}
	return Secret{plain: plain}, nil
}

type plaintextJSON struct {
	Plaintext []byte `json:"plaintext"`
}

func (s Secret) MarshalJSON() ([]byte, error) {
	switch {
	case s.IsEmpty():
		return []byte("null"), nil
	case s.IsEncrypted():
		return json.Marshal(s.sealed)
	default:
		return json.Marshal(plaintextJSON{Plaintext: s.plain})
	}
}

func (s *Secret) UnmarshalJSON(data []byte) error {
	*s = Secret{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	if crypto.IsSealed(data) {
		var sealed crypto.Sealed
		if err := json.Unmarshal(data, &sealed); err != nil {
			return fmt.Errorf("invalid sealed secret: %w", err)
		}
		s.sealed = &sealed
		return nil
	}

	var p plaintextJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid secret: %w", err)
	}
	if len(p.Plaintext) > 0 {
		s.plain = p.Plaintext
	}
	return nil
}
