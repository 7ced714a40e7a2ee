// Package di contains dependency injection tokens for the curve context.
package di

import (
	"github.com/fd1az/curve-arbitrage/business/curve/app"
	"github.com/fd1az/curve-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	StateCache      = di.NewToken[*app.StateCache]("curve.StateCache")
	QuoteService    = di.NewToken[*app.QuoteService]("curve.QuoteService")
	PositionService = di.NewToken[*app.PositionService]("curve.PositionService")
	TokenResolver   = di.NewToken[*app.TokenResolver]("curve.TokenResolver")
	Holdings        = di.NewToken[app.HoldingsReader]("curve.Holdings")
)

// Private dependency tokens - internal to curve module
var (
	Reader        = di.NewToken[app.CurveReader]("curve:reader")
	AddressCaller = di.NewToken[app.AddressCaller]("curve:addressCaller")
)

func GetStateCache(c di.ServiceRegistry) *app.StateCache {
	return di.GetToken(c, StateCache)
}

func GetQuoteService(c di.ServiceRegistry) *app.QuoteService {
	return di.GetToken(c, QuoteService)
}

func GetPositionService(c di.ServiceRegistry) *app.PositionService {
	return di.GetToken(c, PositionService)
}

func GetTokenResolver(c di.ServiceRegistry) *app.TokenResolver {
	return di.GetToken(c, TokenResolver)
}

func GetHoldings(c di.ServiceRegistry) app.HoldingsReader {
	return di.GetToken(c, Holdings)
}

func GetReader(c di.ServiceRegistry) app.CurveReader {
	return di.GetToken(c, Reader)
}

func GetAddressCaller(c di.ServiceRegistry) app.AddressCaller {
	return di.GetToken(c, AddressCaller)
}
