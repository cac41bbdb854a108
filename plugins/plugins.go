// Package plugins maps each supported blockchain to its signer.
package plugins

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/abcfe/abcfe-vault/plugins/btc"
	"github.com/abcfe/abcfe-vault/plugins/eos"
	"github.com/abcfe/abcfe-vault/plugins/eth"
	"github.com/abcfe/abcfe-vault/plugins/internal/keyutil"
	"github.com/abcfe/abcfe-vault/plugins/trx"
	prt "github.com/abcfe/abcfe-vault/protocol"
)

var (
	ErrUnsupportedChain  = errors.New("unsupported blockchain")
	ErrInvalidPrivateKey = keyutil.ErrInvalidPrivateKey
	ErrKeyMismatch       = keyutil.ErrKeyMismatch
	ErrInvalidHash       = keyutil.ErrInvalidHash
)

// Plugin signs and encodes keys for one blockchain.
// Private keys are raw 32 byte secp256k1 scalars.
type Plugin interface {
	Blockchain() prt.Blockchain
	Sign(payload []byte, publicKey string, arbitrary, isHash bool, privateKey []byte) (string, error)
	BufferToHexPrivate(privateKey []byte) (string, error)
	PublicKey(privateKey []byte) (string, error)
	NewPrivateKey() ([]byte, error)
}

type Registry struct {
	mu      sync.RWMutex
	plugins map[prt.Blockchain]Plugin
}

func NewRegistry(ps ...Plugin) *Registry {
	r := &Registry{plugins: make(map[prt.Blockchain]Plugin, len(ps))}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

// Default returns a registry holding every built-in chain
func Default() *Registry {
	return NewRegistry(eos.New(), eth.New(), trx.New(), btc.New())
}

// Register adds p, replacing any plugin for the same chain
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.Blockchain()] = p
}

func (r *Registry) Lookup(chain prt.Blockchain) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedChain, chain)
	}
	return p, nil
}

// Blockchains lists registered chains in a stable order
func (r *Registry) Blockchains() []prt.Blockchain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]prt.Blockchain, 0, len(r.plugins))
	for chain := range r.plugins {
		out = append(out, chain)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
