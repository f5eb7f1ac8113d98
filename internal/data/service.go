package data

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"stock-data-gateway/internal/store"
)

// Service is what callers actually hold: the router wrapped with the
// result cache and the degrade policy. Vendor failures are logged and
// turned into empty or absent results here, so no vendor error ever
// escapes to a caller; downstream aggregation proceeds on partial
// data. The cache is injected, never a package global.
type Service struct {
	source Source
	cache  *store.Store
	ttl    time.Duration
}

// NewService wraps a source with an optional cache. ttl <= 0 disables
// expiry checks; cache == nil disables caching entirely.
func NewService(source Source, cache *store.Store, ttl time.Duration) *Service {
	return &Service{source: source, cache: cache, ttl: ttl}
}

func (s *Service) GetPrices(ctx context.Context, ticker, startDate, endDate string) []Price {
	key := cacheKey(ticker, startDate, endDate)
	var cached []Price
	if s.lookup("prices", key, &cached) {
		return cached
	}
	prices, err := s.source.GetPrices(ctx, ticker, startDate, endDate)
	if err != nil {
		log.Printf("get prices %s: %v", ticker, err)
		return []Price{}
	}
	s.save("prices", key, prices)
	return prices
}

func (s *Service) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) []FinancialMetrics {
	key := cacheKey(ticker, endDate, period, fmt.Sprintf("%d", limit))
	var cached []FinancialMetrics
	if s.lookup("metrics", key, &cached) {
		return cached
	}
	metrics, err := s.source.GetFinancialMetrics(ctx, ticker, endDate, period, limit)
	if err != nil {
		log.Printf("get financial metrics %s: %v", ticker, err)
		return []FinancialMetrics{}
	}
	s.save("metrics", key, metrics)
	return metrics
}

func (s *Service) SearchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) []LineItem {
	key := cacheKey(ticker, strings.Join(items, ","), endDate, period, fmt.Sprintf("%d", limit))
	var cached []LineItem
	if s.lookup("line_items", key, &cached) {
		return cached
	}
	out, err := s.source.SearchLineItems(ctx, ticker, items, endDate, period, limit)
	if err != nil {
		log.Printf("search line items %s: %v", ticker, err)
		return []LineItem{}
	}
	s.save("line_items", key, out)
	return out
}

func (s *Service) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) []InsiderTrade {
	key := cacheKey(ticker, startDate, endDate, fmt.Sprintf("%d", limit))
	var cached []InsiderTrade
	if s.lookup("insider_trades", key, &cached) {
		return cached
	}
	out, err := s.source.GetInsiderTrades(ctx, ticker, startDate, endDate, limit)
	if err != nil {
		log.Printf("get insider trades %s: %v", ticker, err)
		return []InsiderTrade{}
	}
	s.save("insider_trades", key, out)
	return out
}

func (s *Service) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) []CompanyNews {
	key := cacheKey(ticker, startDate, endDate, fmt.Sprintf("%d", limit))
	var cached []CompanyNews
	if s.lookup("company_news", key, &cached) {
		return cached
	}
	out, err := s.source.GetCompanyNews(ctx, ticker, startDate, endDate, limit)
	if err != nil {
		log.Printf("get company news %s: %v", ticker, err)
		return []CompanyNews{}
	}
	s.save("company_news", key, out)
	return out
}

// GetMarketCap is not cached: it is a single spot value and the
// snapshot behind it moves intraday.
func (s *Service) GetMarketCap(ctx context.Context, ticker, endDate string) *float64 {
	v, err := s.source.GetMarketCap(ctx, ticker, endDate)
	if err != nil {
		log.Printf("get market cap %s: %v", ticker, err)
		return nil
	}
	return v
}

func (s *Service) GetPriceData(ctx context.Context, ticker, startDate, endDate string) PriceSeries {
	return s.source.PricesToSeries(s.GetPrices(ctx, ticker, startDate, endDate))
}

func (s *Service) PricesToSeries(prices []Price) PriceSeries {
	return s.source.PricesToSeries(prices)
}

func (s *Service) lookup(kind, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(kind, key, s.ttl, dest)
	if err != nil {
		log.Printf("cache lookup %s/%s: %v", kind, key, err)
		return false
	}
	return ok
}

func (s *Service) save(kind, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(kind, key, v); err != nil {
		log.Printf("cache save %s/%s: %v", kind, key, err)
	}
}

// cacheKey joins call parameters into the deterministic cache key.
func cacheKey(parts ...string) string {
	return strings.Join(parts, "_")
}
