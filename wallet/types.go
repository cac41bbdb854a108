package wallet

import (
	"context"
	"errors"
	"fmt"

	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/abcfe/abcfe-vault/vault"
)

var ErrHardwareUnsupported = errors.New("hardware signing is not supported")

type SignatureErrorKind string

const (
	KindNoKeypair           SignatureErrorKind = "no_keypair"
	KindSignError           SignatureErrorKind = "sign_err"
	KindHardwareUnsupported SignatureErrorKind = "hardware_unsupported"
	KindUnsupportedChain    SignatureErrorKind = "unsupported_chain"
)

// SignatureError is the only error Sign returns
type SignatureError struct {
	Kind    SignatureErrorKind `json:"type"`
	Message string             `json:"message"`
	Err     error              `json:"-"`
}

func (e *SignatureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SignatureError) Unwrap() error { return e.Err }

func newSignatureError(kind SignatureErrorKind, message string, err error) *SignatureError {
	return &SignatureError{Kind: kind, Message: message, Err: err}
}

// Signature is a chain-encoded signature
type Signature struct {
	Blockchain prt.Blockchain `json:"blockchain"`
	PublicKey  string         `json:"publicKey"`
	Value      string         `json:"signature"`
}

// HardwareSigner signs for keypairs whose private key lives on a device
type HardwareSigner interface {
	Types() []string
	PublicKey(ctx context.Context, blockchain prt.Blockchain, index int) (string, error)
	Sign(ctx context.Context, keypair vault.Keypair, network prt.Network, publicKey string, payload []byte, arbitrary, isHash bool) (string, error)
}
