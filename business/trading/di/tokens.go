// Package di contains dependency injection tokens for the trading context.
package di

import (
	"github.com/fd1az/curve-arbitrage/business/trading/app"
	"github.com/fd1az/curve-arbitrage/business/trading/infra/ethereum"
	"github.com/fd1az/curve-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Executor = di.NewToken[*app.Executor]("trading.Executor")
	Ledger   = di.NewToken[*ethereum.Ledger]("trading.Ledger")
)

// Private dependency tokens - internal to trading module
var (
	Transactor = di.NewToken[*ethereum.Transactor]("trading:transactor")
	Notifier   = di.NewToken[app.Notifier]("trading:notifier")
)

func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetLedger(c di.ServiceRegistry) *ethereum.Ledger {
	return di.GetToken(c, Ledger)
}

func GetTransactor(c di.ServiceRegistry) *ethereum.Transactor {
	return di.GetToken(c, Transactor)
}

func GetNotifier(c di.ServiceRegistry) app.Notifier {
	return di.GetToken(c, Notifier)
}
