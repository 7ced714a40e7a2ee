// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/curve-arbitrage/business/arbitrage/app"
	"github.com/fd1az/curve-arbitrage/business/arbitrage/infra/ethereum"
	"github.com/fd1az/curve-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Detector = di.NewToken[*app.Detector]("arbitrage.Detector")
)

// Private dependency tokens - internal to arbitrage module
var (
	Oracle = di.NewToken[*ethereum.Oracle]("arbitrage:oracle")
)

func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetOracle(c di.ServiceRegistry) *ethereum.Oracle {
	return di.GetToken(c, Oracle)
}
