package asset

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Chain IDs the bot is deployed against.
const (
	ChainIDEthereum    = 1
	ChainIDBase        = 8453
	ChainIDBaseSepolia = 84532
	ChainIDAnvil       = 31337
)

// Registry is a concurrency-safe set of known assets.
type Registry struct {
	mu   sync.RWMutex
	byID map[ID]*Asset
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[ID]*Asset)}
}

// NewNetworkRegistry creates a registry holding the native coin of chainID.
// Every chain the bot targets settles gas in ETH.
func NewNetworkRegistry(chainID uint64) *Registry {
	r := NewRegistry()
	native, _ := New(NativeID(chainID), "ETH", 18)
	_ = r.Register(native)
	return r
}

// Register adds a. Registering the same ID twice is an error.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return fmt.Errorf("asset: nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.id]; ok {
		return fmt.Errorf("asset: %s already registered", a.id)
	}
	r.byID[a.id] = a
	return nil
}

func (r *Registry) Get(id ID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// Native returns the native coin of chainID.
func (r *Registry) Native(chainID uint64) (*Asset, bool) {
	return r.Get(NativeID(chainID))
}

// Token returns the ERC20 at addr on chainID.
func (r *Registry) Token(chainID uint64, addr common.Address) (*Asset, bool) {
	return r.Get(TokenID(chainID, addr))
}

// Count is the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
