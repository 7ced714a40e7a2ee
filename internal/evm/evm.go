// Package evm holds small go-ethereum helpers shared by the chain adapters.
package evm

import (
	"errors"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

// CallArg encodes msg the way eth_call expects it in a raw RPC request.
func CallArg(msg ethereum.CallMsg) map[string]any {
	arg := map[string]any{
		"to":   msg.To,
		"data": hexutil.Bytes(msg.Data),
	}
	if msg.From != (common.Address{}) {
		arg["from"] = msg.From
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	return arg
}

// BlockArg encodes a block number for raw RPC requests; nil is latest.
func BlockArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return hexutil.EncodeBig(number)
}

// Selector returns the 4-byte method id of a signature such as "token()".
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// RevertData extracts the ABI-encoded revert payload carried by an RPC error.
func RevertData(err error) ([]byte, bool) {
	var de rpc.DataError
	if !errors.As(err, &de) {
		return nil, false
	}

	switch d := de.ErrorData().(type) {
	case string:
		b, derr := hexutil.Decode(d)
		if derr != nil || len(b) == 0 {
			return nil, false
		}
		return b, true
	case []byte:
		return d, len(d) > 0
	default:
		return nil, false
	}
}

// IsRevert reports whether err is the contract rejecting the call rather
// than a transport failure.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := RevertData(err); ok {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

// Uint64 converts x to uint64, saturating at the bounds.
func Uint64(x *big.Int) uint64 {
	if x == nil || x.Sign() <= 0 {
		return 0
	}
	if !x.IsUint64() {
		return math.MaxUint64
	}
	return x.Uint64()
}
