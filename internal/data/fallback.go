package data

import (
	"context"
	"fmt"
)

// FallbackSource chains vendor adapters for one market: each operation
// tries the sources in order and answers with the first useful result.
// A source that succeeds with no data does not stop the chain; a later
// vendor may still have the figures.
type FallbackSource struct {
	name    string
	sources []Source
}

func NewFallbackSource(name string, sources ...Source) *FallbackSource {
	return &FallbackSource{name: name, sources: sources}
}

func (f *FallbackSource) Name() string { return f.name }

func (f *FallbackSource) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]Price, error) {
	var lastErr error
	for _, s := range f.sources {
		out, err := s.GetPrices(ctx, ticker, startDate, endDate)
		if err == nil && len(out) > 0 {
			return out, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return exhausted(f, lastErr, []Price{})
}

func (f *FallbackSource) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]FinancialMetrics, error) {
	var lastErr error
	for _, s := range f.sources {
		out, err := s.GetFinancialMetrics(ctx, ticker, endDate, period, limit)
		if err == nil && len(out) > 0 {
			return out, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return exhausted(f, lastErr, []FinancialMetrics{})
}

func (f *FallbackSource) SearchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]LineItem, error) {
	var lastErr error
	for _, s := range f.sources {
		out, err := s.SearchLineItems(ctx, ticker, items, endDate, period, limit)
		if err == nil && len(out) > 0 {
			return out, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return exhausted(f, lastErr, []LineItem{})
}

func (f *FallbackSource) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]InsiderTrade, error) {
	var lastErr error
	for _, s := range f.sources {
		out, err := s.GetInsiderTrades(ctx, ticker, startDate, endDate, limit)
		if err == nil && len(out) > 0 {
			return out, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return exhausted(f, lastErr, []InsiderTrade{})
}

func (f *FallbackSource) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]CompanyNews, error) {
	var lastErr error
	for _, s := range f.sources {
		out, err := s.GetCompanyNews(ctx, ticker, startDate, endDate, limit)
		if err == nil && len(out) > 0 {
			return out, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return exhausted(f, lastErr, []CompanyNews{})
}

func (f *FallbackSource) GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error) {
	if len(f.sources) == 0 {
		return nil, f.noSources()
	}
	var lastErr error
	for _, s := range f.sources {
		v, err := s.GetMarketCap(ctx, ticker, endDate)
		if err == nil && v != nil {
			return v, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	// Every source answered absent: the ticker is unlisted, not an error.
	return nil, lastErr
}

func (f *FallbackSource) GetPriceData(ctx context.Context, ticker, startDate, endDate string) (PriceSeries, error) {
	prices, err := f.GetPrices(ctx, ticker, startDate, endDate)
	if err != nil {
		return PriceSeries{}, err
	}
	return f.PricesToSeries(prices), nil
}

// PricesToSeries renders with the primary vendor's layout.
func (f *FallbackSource) PricesToSeries(prices []Price) PriceSeries {
	if len(f.sources) == 0 {
		return PriceSeries{}
	}
	return f.sources[0].PricesToSeries(prices)
}

// exhausted decides the chain's final answer: an error only when every
// source failed and at least one failed hard; empty otherwise.
func exhausted[T any](f *FallbackSource, lastErr error, empty []T) ([]T, error) {
	if len(f.sources) == 0 {
		return nil, f.noSources()
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return empty, nil
}

func (f *FallbackSource) noSources() error {
	return fmt.Errorf("no sources configured for %s", f.name)
}
