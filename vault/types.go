package vault

import (
	"fmt"
	"time"

	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/google/uuid"
)

const ScatterVersion = "1.0.0"

type PublicKey struct {
	Key        string         `json:"key"`
	Blockchain prt.Blockchain `json:"blockchain"`
}

// External marks a keypair whose private key lives on a hardware device
type External struct {
	Type         string `json:"type"`         // e.g. "ledger"
	AddressIndex int    `json:"addressIndex"` // Derivation index on the device
}

type Keypair struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	PublicKeys []PublicKey `json:"publicKeys"`
	PrivateKey Secret      `json:"privateKey"`
	External   *External   `json:"external,omitempty"`
	CreatedAt  int64       `json:"createdAt"`
}

type Identity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PublicKey  string `json:"publicKey"`
	PrivateKey Secret `json:"privateKey"`
}

// Card holds an arbitrary secret payload (card number, notes)
type Card struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Secure Secret `json:"secure"`
}

type Keychain struct {
	Keypairs   []Keypair  `json:"keypairs"`
	Identities []Identity `json:"identities"`
	Cards      []Card     `json:"cards"`
}

type Meta struct {
	Version   string `json:"version"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Scatter is the aggregate persisted as one encrypted blob
type Scatter struct {
	Meta     Meta     `json:"meta"`
	Keychain Keychain `json:"keychain"`
}

func NewScatter() *Scatter {
	return &Scatter{
		Meta: Meta{Version: ScatterVersion, UpdatedAt: time.Now().Unix()},
		Keychain: Keychain{
			Keypairs:   []Keypair{},
			Identities: []Identity{},
			Cards:      []Card{},
		},
	}
}

// NewKeypair creates a software keypair with a fresh id
func NewKeypair(name string, privateKey []byte, publicKeys ...PublicKey) Keypair {
	return Keypair{
		ID:         uuid.NewString(),
		Name:       name,
		PublicKeys: append([]PublicKey(nil), publicKeys...),
		PrivateKey: Plaintext(privateKey),
		CreatedAt:  time.Now().Unix(),
	}
}

// NewHardwareKeypair creates a keypair whose key never enters the vault
func NewHardwareKeypair(name string, ext External, publicKeys ...PublicKey) Keypair {
	return Keypair{
		ID:         uuid.NewString(),
		Name:       name,
		PublicKeys: append([]PublicKey(nil), publicKeys...),
		External:   &ext,
		CreatedAt:  time.Now().Unix(),
	}
}

func NewIdentity(name, publicKey string, privateKey []byte) Identity {
	return Identity{
		ID:         uuid.NewString(),
		Name:       name,
		PublicKey:  publicKey,
		PrivateKey: Plaintext(privateKey),
	}
}

func NewCard(name string, secure []byte) Card {
	return Card{
		ID:     uuid.NewString(),
		Name:   name,
		Secure: Plaintext(secure),
	}
}

func (k Keypair) HasPublicKey(key string) bool {
	for _, pk := range k.PublicKeys {
		if pk.Key == key {
			return true
		}
	}
	return false
}

func (k Keypair) Clone() Keypair {
	c := k
	c.PublicKeys = append([]PublicKey(nil), k.PublicKeys...)
	c.PrivateKey = k.PrivateKey.Clone()
	if k.External != nil {
		ext := *k.External
		c.External = &ext
	}
	return c
}

func (i Identity) Clone() Identity {
	c := i
	c.PrivateKey = i.PrivateKey.Clone()
	return c
}

func (c Card) Clone() Card {
	out := c
	out.Secure = c.Secure.Clone()
	return out
}

// Clone returns a deep copy sharing no memory with k
func (k Keychain) Clone() Keychain {
	out := Keychain{
		Keypairs:   make([]Keypair, len(k.Keypairs)),
		Identities: make([]Identity, len(k.Identities)),
		Cards:      make([]Card, len(k.Cards)),
	}
	for i, kp := range k.Keypairs {
		out.Keypairs[i] = kp.Clone()
	}
	for i, id := range k.Identities {
		out.Identities[i] = id.Clone()
	}
	for i, c := range k.Cards {
		out.Cards[i] = c.Clone()
	}
	return out
}

// Validate checks id uniqueness within each collection
func (k Keychain) Validate() error {
	seen := make(map[string]struct{}, len(k.Keypairs))
	for _, kp := range k.Keypairs {
		if kp.ID == "" {
			return fmt.Errorf("%w: keypair without id", ErrInvalidScatter)
		}
		if _, ok := seen[kp.ID]; ok {
			return fmt.Errorf("%w: keypair %s", ErrDuplicateID, kp.ID)
		}
		seen[kp.ID] = struct{}{}
	}

	seen = make(map[string]struct{}, len(k.Identities))
	for _, id := range k.Identities {
		if id.ID == "" {
			return fmt.Errorf("%w: identity without id", ErrInvalidScatter)
		}
		if _, ok := seen[id.ID]; ok {
			return fmt.Errorf("%w: identity %s", ErrDuplicateID, id.ID)
		}
		seen[id.ID] = struct{}{}
	}
	return nil
}

// FindKeypair returns the keypair with the given id
func (k Keychain) FindKeypair(id string) (Keypair, bool) {
	for _, kp := range k.Keypairs {
		if kp.ID == id {
			return kp, true
		}
	}
	return Keypair{}, false
}

// FindByPublicKey returns the first keypair whose public key set contains key
func (k Keychain) FindByPublicKey(key string) (Keypair, bool) {
	for _, kp := range k.Keypairs {
		if kp.HasPublicKey(key) {
			return kp, true
		}
	}
	return Keypair{}, false
}

// transform applies fn to every secret field in place
func (k *Keychain) transform(fn func(Secret) (Secret, error)) error {
	var err error
	for i := range k.Keypairs {
		if k.Keypairs[i].PrivateKey, err = fn(k.Keypairs[i].PrivateKey); err != nil {
			return fmt.Errorf("keypair %s: %w", k.Keypairs[i].ID, err)
		}
	}
	for i := range k.Identities {
		if k.Identities[i].PrivateKey, err = fn(k.Identities[i].PrivateKey); err != nil {
			return fmt.Errorf("identity %s: %w", k.Identities[i].ID, err)
		}
	}
	for i := range k.Cards {
		if k.Cards[i].Secure, err = fn(k.Cards[i].Secure); err != nil {
			return fmt.Errorf("card %s: %w", k.Cards[i].ID, err)
		}
	}
	return nil
}

// secrets returns every secret field, keypairs first
func (k Keychain) secrets() []Secret {
	out := make([]Secret, 0, len(k.Keypairs)+len(k.Identities)+len(k.Cards))
	for _, kp := range k.Keypairs {
		out = append(out, kp.PrivateKey)
	}
	for _, id := range k.Identities {
		out = append(out, id.PrivateKey)
	}
	for _, c := range k.Cards {
		out = append(out, c.Secure)
	}
	return out
}

// allEncrypted reports whether no secret field holds plaintext
func (k Keychain) allEncrypted() bool {
	for _, s := range k.secrets() {
		if !s.IsEncrypted() && !s.IsEmpty() {
			return false
		}
	}
	return true
}

func (s *Scatter) Clone() *Scatter {
	if s == nil {
		return nil
	}
	return &Scatter{Meta: s.Meta, Keychain: s.Keychain.Clone()}
}

// encrypted returns a copy with every plaintext field sealed under seed
func (s *Scatter) encrypted(seed []byte) (*Scatter, error) {
	out := s.Clone()
	if err := out.Keychain.transform(func(sec Secret) (Secret, error) { return sec.encrypt(seed) }); err != nil {
		return nil, err
	}
	return out, nil
}

// decrypted returns a copy with every encrypted field opened under seed
func (s *Scatter) decrypted(seed []byte) (*Scatter, error) {
	out := s.Clone()
	if err := out.Keychain.transform(func(sec Secret) (Secret, error) { return sec.decrypt(seed) }); err != nil {
		return nil, err
	}
	return out, nil
}

// Wipe zeroes plaintext secret material held by s
func (s *Scatter) Wipe() {
	if s == nil {
		return
	}
	for _, sec := range s.Keychain.secrets() {
		for i := range sec.plain {
			sec.plain[i] = 0
		}
	}
}
