package rest

import (
	"context"

	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/abcfe/abcfe-vault/wallet"
)

// General response structure
type RestResp struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type StatusResp struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	State     string `json:"state"`
	Exists    bool   `json:"exists"`
	Unlocked  bool   `json:"unlocked"`
	WSClients int    `json:"wsClients"`
}

type UnlockReq struct {
	Password string `json:"password"`
	IsNew    bool   `json:"isNew"`
	Salt     string `json:"salt,omitempty"` // replaces the persisted salt
}

type PasswordReq struct {
	Password string `json:"password"`
}

type ChangePasswordReq struct {
	Password    string `json:"password"` // current password
	NewPassword string `json:"newPassword"`
}

type VerifyResp struct {
	Valid bool `json:"valid"`
}

type KeychainResp struct {
	Keypairs   []wallet.KeypairInfo `json:"keypairs"`
	Identities []IdentityResp       `json:"identities"`
	Cards      []CardResp           `json:"cards"`
}

type IdentityResp struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PublicKey string `json:"publicKey"`
}

type CardResp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateKeypairReq generates a key, or imports PrivateKey (hex) when set
type CreateKeypairReq struct {
	Name        string           `json:"name"`
	Blockchains []prt.Blockchain `json:"blockchains"`
	PrivateKey  string           `json:"privateKey,omitempty"`
}

// SignReq carries the payload as hex, or as text when Arbitrary is set
type SignReq struct {
	Network   prt.Network `json:"network"`
	PublicKey string      `json:"publicKey"`
	Payload   string      `json:"payload"`
	Arbitrary bool        `json:"arbitrary"`
	IsHash    bool        `json:"isHash"`
}

type ExportReq struct {
	Blockchain prt.Blockchain `json:"blockchain"`
}

type ExportResp struct {
	PrivateKey string `json:"privateKey,omitempty"`
	Declined   bool   `json:"declined"`
}

// OptionalStore keeps auxiliary secrets sealed under the live vault seed
type OptionalStore interface {
	PutOptional(ctx context.Context, name string, value []byte) error
	GetOptional(ctx context.Context, name string) ([]byte, error)
	DeleteOptional(ctx context.Context, name string) error
	ListOptionals(ctx context.Context) ([]string, error)
}

type OptionalReq struct {
	Value string `json:"value"`
}

type OptionalResp struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}
