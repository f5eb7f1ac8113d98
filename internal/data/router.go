package data

import "context"

// Router is the dispatch proxy: one uniform operation set whose calls
// are forwarded, arguments unchanged, to the adapter bound to the
// ticker's market. Bindings are fixed at construction; there is no
// runtime registration. The router transforms nothing, it only selects.
type Router struct {
	bindings map[Market]Source
	global   Source
}

// NewRouter binds the Chinese-market and global adapters. The global
// adapter is also the default for any ticker shape the classifier does
// not recognize, so routing never fails.
func NewRouter(china, global Source) *Router {
	return &Router{
		bindings: map[Market]Source{
			MarketChina:  china,
			MarketGlobal: global,
		},
		global: global,
	}
}

// Route resolves the adapter handle for a ticker.
func (r *Router) Route(ticker string) Source {
	if s, ok := r.bindings[Classify(ticker)]; ok && s != nil {
		return s
	}
	return r.global
}

func (r *Router) Name() string { return "router" }

func (r *Router) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]Price, error) {
	return r.Route(ticker).GetPrices(ctx, ticker, startDate, endDate)
}

func (r *Router) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]FinancialMetrics, error) {
	return r.Route(ticker).GetFinancialMetrics(ctx, ticker, endDate, period, limit)
}

func (r *Router) SearchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]LineItem, error) {
	return r.Route(ticker).SearchLineItems(ctx, ticker, items, endDate, period, limit)
}

func (r *Router) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]InsiderTrade, error) {
	return r.Route(ticker).GetInsiderTrades(ctx, ticker, startDate, endDate, limit)
}

func (r *Router) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]CompanyNews, error) {
	return r.Route(ticker).GetCompanyNews(ctx, ticker, startDate, endDate, limit)
}

func (r *Router) GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error) {
	return r.Route(ticker).GetMarketCap(ctx, ticker, endDate)
}

func (r *Router) GetPriceData(ctx context.Context, ticker, startDate, endDate string) (PriceSeries, error) {
	return r.Route(ticker).GetPriceData(ctx, ticker, startDate, endDate)
}

// PricesToSeries takes records, not a ticker, so the market is
// recovered from the first record's embedded ticker. Records without a
// ticker render with the global adapter; a mixed-market sequence
// renders by its first element, nothing stronger is promised.
func (r *Router) PricesToSeries(prices []Price) PriceSeries {
	if len(prices) > 0 && prices[0].Ticker != "" {
		return r.Route(prices[0].Ticker).PricesToSeries(prices)
	}
	return r.global.PricesToSeries(prices)
}
