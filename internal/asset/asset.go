// Package asset describes the on-chain assets the bot handles: the network's
// native coin and the ERC20 token a curve settles in. Raw values stay in
// big.Int; decimal.Decimal is only used for display and parsing.
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ID identifies an asset by chain and contract. The zero address is the
// native coin.
type ID struct {
	ChainID uint64
	Address common.Address
}

// NativeID is the native coin of chainID.
func NativeID(chainID uint64) ID {
	return ID{ChainID: chainID}
}

// TokenID is an ERC20 token on chainID.
func TokenID(chainID uint64, addr common.Address) ID {
	return ID{ChainID: chainID, Address: addr}
}

func (id ID) IsNative() bool {
	return id.Address == (common.Address{})
}

func (id ID) String() string {
	if id.IsNative() {
		return fmt.Sprintf("chain:%d/native", id.ChainID)
	}
	return fmt.Sprintf("chain:%d/%s", id.ChainID, id.Address.Hex())
}

// Asset is display metadata for an ID. The symbol is not identity.
type Asset struct {
	id       ID
	symbol   string
	decimals uint8
}

// New creates an Asset. Symbols read from arbitrary contracts may be empty;
// those fall back to a shortened address.
func New(id ID, symbol string, decimals uint8) (*Asset, error) {
	if decimals > 36 {
		return nil, fmt.Errorf("asset: %s reports %d decimals", id, decimals)
	}
	if symbol == "" {
		symbol = id.Address.Hex()[:8]
	}
	return &Asset{id: id, symbol: symbol, decimals: decimals}, nil
}

func (a *Asset) ID() ID                  { return a.id }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Decimals() uint8         { return a.decimals }
func (a *Asset) Address() common.Address { return a.id.Address }
func (a *Asset) String() string          { return a.symbol }
