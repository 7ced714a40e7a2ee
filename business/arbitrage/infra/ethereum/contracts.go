package ethereum

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// OracleABI covers the price oracle's record lookup and update event.
const OracleABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "raffleId", "type": "uint256"},
			{"internalType": "address", "name": "player", "type": "address"}
		],
		"name": "getPriceRecord",
		"outputs": [
			{
				"components": [
					{"internalType": "uint256", "name": "raffleProbabilityBps", "type": "uint256"},
					{"internalType": "uint256", "name": "marketSentimentBps", "type": "uint256"},
					{"internalType": "uint256", "name": "hybridPriceBps", "type": "uint256"},
					{"internalType": "uint256", "name": "lastUpdate", "type": "uint256"},
					{"internalType": "bool", "name": "active", "type": "bool"}
				],
				"internalType": "struct PriceRecord",
				"name": "",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "uint256", "name": "raffleId", "type": "uint256"},
			{"indexed": true, "internalType": "address", "name": "player", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "raffleBps", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "marketBps", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "hybridBps", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "timestamp", "type": "uint256"}
		],
		"name": "PriceUpdated",
		"type": "event"
	}
]`

// Event topics that start a fresh detection pass.
var (
	PriceUpdatedTopic    = crypto.Keccak256Hash([]byte("PriceUpdated(uint256,address,uint256,uint256,uint256,uint256)"))
	PositionCreatedTopic = crypto.Keccak256Hash([]byte("PositionCreated(address,uint256,uint256)"))
)

// priceRecordABI mirrors the PriceRecord tuple.
type priceRecordABI struct {
	RaffleProbabilityBps *big.Int
	MarketSentimentBps   *big.Int
	HybridPriceBps       *big.Int
	LastUpdate           *big.Int
	Active               bool
}

// TriggerTopics is the topic-0 set for oracle updates and new curve
// positions.
func TriggerTopics() [][]common.Hash {
	return [][]common.Hash{{PriceUpdatedTopic, PositionCreatedTopic}}
}
