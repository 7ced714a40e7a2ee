// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ConnectionState represents the state of a log subscription.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// ConnectionStatus contains detailed subscription information.
type ConnectionStatus struct {
	State      ConnectionState
	LastBlock  uint64
	LastUpdate time.Time
	Reconnects int
	UsingHTTP  bool // true if polling eth_getLogs instead of a websocket subscription
}

// LogFilter selects the contract logs a subscriber delivers. Topics follows
// the eth_getLogs positional layout.
type LogFilter struct {
	Addresses []common.Address
	Topics    [][]common.Hash
}
