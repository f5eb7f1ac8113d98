package data

import "context"

// Source is the uniform operation set every vendor adapter implements.
// The full surface is declared once so the router can swap backends
// without callers knowing which vendor is live.
//
// Error contract: adapters return an error for vendor failures and for
// price rows whose mandatory fields do not parse (fail-fast, no partial
// output); "the vendor has no such data" is an empty result, not an
// error. Capability gaps (insider trades, news on the Chinese vendors)
// always return empty.
type Source interface {
	Name() string

	GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]Price, error)
	GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]FinancialMetrics, error)
	SearchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]LineItem, error)
	GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]InsiderTrade, error)
	GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]CompanyNews, error)
	GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error)

	// GetPriceData is GetPrices plus rendering, kept on the interface so
	// the router can forward it like any other operation.
	GetPriceData(ctx context.Context, ticker, startDate, endDate string) (PriceSeries, error)

	// PricesToSeries renders already-fetched prices; it takes no ticker,
	// so the router recovers the market from the records themselves.
	PricesToSeries(prices []Price) PriceSeries
}
