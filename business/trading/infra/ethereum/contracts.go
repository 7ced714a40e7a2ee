// Package ethereum implements the trading ports against ERC20 tokens and the
// curve's trade entry points.
package ethereum

// ERC20ABI is the subset of ERC20 the executor reads and approves through.
const ERC20ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"decimals","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"symbol","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

// CurveTradeABI holds the curve's state-changing entry points.
const CurveTradeABI = `[
	{"type":"function","name":"buyTokens","stateMutability":"nonpayable",
	 "inputs":[{"name":"tokenAmount","type":"uint256"},{"name":"maxSofAmount","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"sellTokens","stateMutability":"nonpayable",
	 "inputs":[{"name":"tokenAmount","type":"uint256"},{"name":"minSofAmount","type":"uint256"}],
	 "outputs":[]}
]`
