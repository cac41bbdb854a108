package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abcfe/abcfe-vault/common/crypto"
	"github.com/abcfe/abcfe-vault/common/logger"
	"github.com/awnumar/memguard"
	"go.uber.org/atomic"
)

type State int

const (
	StateUninitialized State = iota
	StateLocked
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type EventType string

const (
	EventLocked          EventType = "locked"
	EventUnlocked        EventType = "unlocked"
	EventUpdated         EventType = "updated"
	EventPasswordChanged EventType = "password_changed"
)

// Event describes a state change. It never carries secret material.
type Event struct {
	Type  EventType `json:"type"`
	State string    `json:"state"`
	Epoch uint64    `json:"epoch"`
	At    int64     `json:"at"`
}

type Option func(*Vault)

// WithNotifier registers a callback invoked after every state change.
// It runs with the vault lock held and must not call back into the vault.
func WithNotifier(fn func(Event)) Option {
	return func(v *Vault) {
		v.notify = fn
	}
}

// Vault owns the seed and the keychain snapshot.
//
// While Unlocked the held snapshot is decoded but every secret field stays
// sealed; plaintext is produced on demand by Scatter and WithPrivateKey and is
// never kept by the vault. Mutating operations hold the write lock for their
// whole run so they never interleave.
type Vault struct {
	mu      sync.RWMutex
	storage Storage
	notify  func(Event)

	state   State
	seed    *memguard.LockedBuffer // nil unless Unlocked
	salt    string
	blob    []byte   // last persisted encrypted form
	scatter *Scatter // sealed fields, nil unless Unlocked

	// epoch changes on every lock and unlock
	epoch *atomic.Uint64
}

func New(storage Storage, opts ...Option) *Vault {
	v := &Vault{
		storage: storage,
		state:   StateUninitialized,
		epoch:   atomic.NewUint64(0),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Init loads the persisted blob and salt and registers the seed accessor with storage
func (v *Vault) Init(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	blob, err := v.storage.GetScatter(ctx)
	if err != nil {
		return fmt.Errorf("failed to load vault: %w", err)
	}
	salt, err := v.storage.GetSalt(ctx)
	if err != nil {
		return fmt.Errorf("failed to load salt: %w", err)
	}

	v.blob = blob
	v.salt = salt
	if blob != nil {
		v.state = StateLocked
	}
	v.storage.SetSeedAccessor(v.withSeed)
	return nil
}

// Unlock derives the seed from password and opens the vault.
//
// Calling Unlock on an unlocked vault returns the current snapshot. With isNew
// a fresh empty vault is created and persisted. A non-empty explicitSalt
// replaces the persisted salt; it is written only once the vault opens.
func (v *Vault) Unlock(ctx context.Context, password string, isNew bool, explicitSalt string) (*Scatter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	// once started the operation runs to completion
	ctx = context.WithoutCancel(ctx)

	if v.state == StateUnlocked {
		return v.plaintext()
	}

	if isNew && v.blob != nil {
		return nil, ErrVaultExists
	}
	if !isNew && v.blob == nil {
		return nil, ErrNotInitialized
	}

	salt := v.salt
	if explicitSalt != "" {
		salt = explicitSalt
	}
	if salt == "" {
		if !isNew {
			return nil, ErrNoSalt
		}
		var err error
		if salt, err = crypto.NewSalt(); err != nil {
			return nil, err
		}
	}

	seed, err := crypto.DeriveSeed(password, salt)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(seed)

	var scatter *Scatter
	if isNew {
		scatter = NewScatter()
		blob, err := sealScatter(seed, scatter)
		if err != nil {
			return nil, err
		}
		if err := v.storage.Commit(ctx, blob, salt); err != nil {
			return nil, fmt.Errorf("failed to persist new vault: %w", err)
		}
		v.blob = blob
	} else {
		scatter, err = openScatter(seed, v.blob)
		if err != nil {
			logger.Warn("vault unlock failed: ", err)
			v.resetLocked(ctx)
			return nil, ErrWrongPassword
		}
		if explicitSalt != "" && explicitSalt != v.salt {
			if err := v.storage.SetSalt(ctx, explicitSalt); err != nil {
				v.resetLocked(ctx)
				return nil, fmt.Errorf("failed to persist salt: %w", err)
			}
		}
	}

	v.salt = salt
	v.seed = memguard.NewBufferFromBytes(seed)
	v.scatter = scatter
	v.state = StateUnlocked
	v.epoch.Inc()
	v.emit(EventUnlocked)
	logger.Info("vault unlocked")

	return v.plaintext()
}

// Lock discards the seed and reloads the persisted encrypted snapshot.
// It always succeeds; a failed reload is logged and the last loaded blob kept.
func (v *Vault) Lock(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ctx = context.WithoutCancel(ctx)

	v.destroySeed()
	v.scatter = nil
	v.epoch.Inc()

	if blob, err := v.storage.GetScatter(ctx); err != nil {
		logger.Error("failed to reload vault after lock: ", err)
	} else {
		v.blob = blob
	}
	if v.blob != nil {
		v.state = StateLocked
	} else {
		v.state = StateUninitialized
	}
	v.emit(EventLocked)
	logger.Info("vault locked")
}

// VerifyPassword reports whether password derives the seed currently held
func (v *Vault) VerifyPassword(ctx context.Context, password string) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.state != StateUnlocked {
		return false, ErrLocked
	}

	salt, err := v.storage.GetSalt(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load salt: %w", err)
	}
	if salt == "" {
		return false, ErrNoSalt
	}

	candidate, err := crypto.DeriveSeed(password, salt)
	if err != nil {
		return false, err
	}
	defer crypto.Zero(candidate)

	return v.seed.EqualTo(candidate), nil
}

// ChangePassword re-keys every secret field under a seed derived from
// newPassword and a fresh salt. The blob, the salt and the storage optionals
// are committed in one atomic write; on failure the vault stays under the
// old seed, in memory and on disk.
func (v *Vault) ChangePassword(ctx context.Context, newPassword string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	ctx = context.WithoutCancel(ctx)

	if v.state != StateUnlocked {
		return ErrLocked
	}

	newSalt, err := crypto.NewSalt()
	if err != nil {
		return err
	}
	newSeed, err := crypto.DeriveSeed(newPassword, newSalt)
	if err != nil {
		return err
	}
	defer crypto.Zero(newSeed)

	oldSeed := append([]byte(nil), v.seed.Bytes()...)
	defer crypto.Zero(oldSeed)

	rekeyed := v.scatter.Clone()
	err = rekeyed.Keychain.transform(func(s Secret) (Secret, error) {
		plain, err := s.decrypt(oldSeed)
		if err != nil {
			return Secret{}, err
		}
		defer crypto.Zero(plain.plain)
		return plain.encrypt(newSeed)
	})
	if err != nil {
		return fmt.Errorf("failed to re-encrypt keychain: %w", err)
	}
	rekeyed.Meta.UpdatedAt = time.Now().Unix()

	blob, err := sealScatter(newSeed, rekeyed)
	if err != nil {
		return err
	}
	// blob, salt and optionals move together or not at all
	if err := v.storage.Rekey(ctx, blob, newSalt, oldSeed, newSeed); err != nil {
		return fmt.Errorf("failed to persist re-keyed vault: %w", err)
	}

	v.blob = blob
	v.salt = newSalt
	v.scatter = rekeyed
	v.destroySeed()
	v.seed = memguard.NewBufferFromBytes(newSeed)
	v.emit(EventPasswordChanged)
	logger.Info("vault password changed")
	return nil
}

// UpdateScatter replaces the keychain. Plaintext fields are sealed under the
// current seed, already sealed fields are kept as they are, and the whole
// scatter is persisted as one blob. Returns the new plaintext snapshot.
func (v *Vault) UpdateScatter(ctx context.Context, s *Scatter) (*Scatter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	ctx = context.WithoutCancel(ctx)

	if v.state != StateUnlocked {
		return nil, ErrLocked
	}
	if s == nil {
		return nil, ErrInvalidScatter
	}
	if err := v.commit(ctx, s.Clone()); err != nil {
		return nil, err
	}
	return v.plaintext()
}

// UpdateKeychain applies fn to a copy of the held keychain and persists the
// result. fn sees secret fields sealed; plaintext it adds is sealed on commit.
// Nothing changes if fn returns an error.
func (v *Vault) UpdateKeychain(ctx context.Context, fn func(kc *Keychain) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	ctx = context.WithoutCancel(ctx)

	if v.state != StateUnlocked {
		return ErrLocked
	}
	in := v.scatter.Clone()
	if err := fn(&in.Keychain); err != nil {
		return err
	}
	return v.commit(ctx, in)
}

// commit validates, seals and persists in, then makes it the held snapshot.
// Caller holds the write lock and owns in.
func (v *Vault) commit(ctx context.Context, in *Scatter) error {
	if err := in.Keychain.Validate(); err != nil {
		return err
	}
	if in.Meta.Version == "" {
		in.Meta.Version = ScatterVersion
	}
	in.Meta.UpdatedAt = time.Now().Unix()

	seed := v.seed.Bytes()

	// Sealed input must belong to this vault
	check, err := in.decrypted(seed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScatter, err)
	}
	check.Wipe()

	enc, err := in.encrypted(seed)
	in.Wipe()
	if err != nil {
		return err
	}
	blob, err := sealScatter(seed, enc)
	if err != nil {
		return err
	}
	if err := v.storage.SetScatter(ctx, blob); err != nil {
		return fmt.Errorf("failed to persist vault: %w", err)
	}

	v.blob = blob
	v.scatter = enc
	v.emit(EventUpdated)
	return nil
}

// Scatter returns a decrypted copy of the snapshot, or nil when not unlocked
func (v *Vault) Scatter() *Scatter {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.state != StateUnlocked {
		return nil
	}
	s, err := v.plaintext()
	if err != nil {
		logger.Error("failed to decrypt snapshot: ", err)
		return nil
	}
	return s
}

// Keychain returns the unlocked keychain with secret fields left sealed
func (v *Vault) Keychain() (Keychain, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.state != StateUnlocked {
		return Keychain{}, ErrLocked
	}
	return v.scatter.Keychain.Clone(), nil
}

// Exists reports whether a keychain is held, locked or not
func (v *Vault) Exists() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.blob != nil || v.scatter != nil
}

// IsUnlocked reports whether a seed is held and the snapshot is decoded
func (v *Vault) IsUnlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.seed != nil && v.state == StateUnlocked && v.scatter != nil
}

func (v *Vault) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Epoch identifies the current lock/unlock cycle
func (v *Vault) Epoch() uint64 {
	return v.epoch.Load()
}

// WithPrivateKey decrypts the private key of keypairID and passes it to fn.
// The key is wiped when fn returns. epoch must match the current cycle, so a
// caller that captured it before a lock cannot use a later unlock.
func (v *Vault) WithPrivateKey(epoch uint64, keypairID string, fn func(privateKey []byte) error) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.state != StateUnlocked || v.seed == nil || epoch != v.epoch.Load() {
		return ErrLocked
	}

	kp, ok := v.scatter.Keychain.FindKeypair(keypairID)
	if !ok {
		return ErrKeypairNotFound
	}
	if kp.External != nil {
		return ErrExternalKey
	}
	if kp.PrivateKey.IsEmpty() {
		return ErrNoPrivateKey
	}

	plain, err := kp.PrivateKey.decrypt(v.seed.Bytes())
	if err != nil {
		return err
	}
	defer crypto.Zero(plain.plain)

	return fn(plain.plain)
}

func (v *Vault) withSeed(fn func(seed []byte) error) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.state != StateUnlocked || v.seed == nil {
		return ErrLocked
	}
	return fn(v.seed.Bytes())
}

// plaintext decrypts the held snapshot. Caller holds the lock.
func (v *Vault) plaintext() (*Scatter, error) {
	return v.scatter.decrypted(v.seed.Bytes())
}

// resetLocked returns to a safe Locked state after a failed unlock. Caller holds the lock.
func (v *Vault) resetLocked(ctx context.Context) {
	v.destroySeed()
	v.scatter = nil
	if blob, err := v.storage.GetScatter(ctx); err == nil && blob != nil {
		v.blob = blob
	}
	v.state = StateLocked
}

func (v *Vault) destroySeed() {
	if v.seed != nil {
		v.seed.Destroy()
		v.seed = nil
	}
}

func (v *Vault) emit(t EventType) {
	if v.notify == nil {
		return
	}
	v.notify(Event{Type: t, State: v.state.String(), Epoch: v.epoch.Load(), At: time.Now().Unix()})
}

// sealScatter encrypts a scatter whose secret fields are already sealed
func sealScatter(seed []byte, s *Scatter) ([]byte, error) {
	if !s.Keychain.allEncrypted() {
		return nil, errors.New("vault: refusing to persist plaintext secret")
	}
	return crypto.SealJSON(seed, s)
}

// openScatter decrypts the blob and checks every field opens under seed.
// The returned scatter keeps its fields sealed.
func openScatter(seed, blob []byte) (*Scatter, error) {
	plain, err := crypto.OpenJSON(seed, blob)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(plain)

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(plain, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScatter, err)
	}
	if _, ok := shape["keychain"]; !ok {
		return nil, fmt.Errorf("%w: missing keychain", ErrInvalidScatter)
	}

	var s Scatter
	if err := json.Unmarshal(plain, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScatter, err)
	}
	if !s.Keychain.allEncrypted() {
		return nil, fmt.Errorf("%w: plaintext field in persisted vault", ErrInvalidScatter)
	}
	check, err := s.decrypted(seed)
	if err != nil {
		return nil, err
	}
	check.Wipe()
	return &s, nil
}
