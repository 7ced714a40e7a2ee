package ethereum

import "math/big"

// BondingCurveABI covers the curve's view functions, trade functions and the
// position event.
const BondingCurveABI = `[
	{
		"inputs": [],
		"name": "curveConfig",
		"outputs": [
			{"internalType": "uint256", "name": "totalSupply", "type": "uint256"},
			{"internalType": "uint256", "name": "sofReserves", "type": "uint256"},
			{"internalType": "uint256", "name": "currentStep", "type": "uint256"},
			{"internalType": "uint16", "name": "buyFee", "type": "uint16"},
			{"internalType": "uint16", "name": "sellFee", "type": "uint16"},
			{"internalType": "bool", "name": "tradingLocked", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getBondSteps",
		"outputs": [
			{
				"components": [
					{"internalType": "uint128", "name": "rangeTo", "type": "uint128"},
					{"internalType": "uint128", "name": "price", "type": "uint128"}
				],
				"internalType": "struct BondStep[]",
				"name": "",
				"type": "tuple[]"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getCurrentStep",
		"outputs": [
			{"internalType": "uint256", "name": "step", "type": "uint256"},
			{"internalType": "uint256", "name": "price", "type": "uint256"},
			{"internalType": "uint256", "name": "rangeTo", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "tradingWindow",
		"outputs": [
			{"internalType": "uint64", "name": "startTime", "type": "uint64"},
			{"internalType": "uint64", "name": "endTime", "type": "uint64"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "tokenAmount", "type": "uint256"}],
		"name": "calculateBuyPrice",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "tokenAmount", "type": "uint256"}],
		"name": "calculateSellPrice",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "player", "type": "address"}],
		"name": "playerTickets",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getParticipants",
		"outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "tokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "maxSofAmount", "type": "uint256"}
		],
		"name": "buyTokens",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "tokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "minSofAmount", "type": "uint256"}
		],
		"name": "sellTokens",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "player", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "ticketsAdded", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "totalTickets", "type": "uint256"}
		],
		"name": "PositionCreated",
		"type": "event"
	}
]`

// bondStepABI mirrors the BondStep tuple returned by getBondSteps.
type bondStepABI struct {
	RangeTo *big.Int
	Price   *big.Int
}
