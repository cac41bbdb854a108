package vault

import "errors"

var (
	// ErrWrongPassword is returned by Unlock when the derived seed does not
	// open the persisted vault. The vault stays Locked.
	ErrWrongPassword = errors.New("vault: wrong password")

	ErrLocked          = errors.New("vault: locked")
	ErrNotInitialized  = errors.New("vault: not initialized")
	ErrVaultExists     = errors.New("vault: already initialized")
	ErrNoSalt          = errors.New("vault: no salt persisted")
	ErrDuplicateID     = errors.New("vault: duplicate id")
	ErrKeypairNotFound = errors.New("vault: keypair not found")
	ErrExternalKey     = errors.New("vault: keypair is held by external hardware")
	ErrNoPrivateKey    = errors.New("vault: keypair has no private key")
	ErrInvalidScatter  = errors.New("vault: invalid scatter")
)
