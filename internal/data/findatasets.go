package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"stock-data-gateway/internal/fields"
)

// FinDatasetsSource is the default adapter for non-Chinese tickers. The
// vendor already answers in canonical field names with a stable schema,
// so its responses decode straight into the record types and the fuzzy
// resolver is only needed for the dynamic line-item payloads.
type FinDatasetsSource struct {
	cfg    FinDatasetsConfig
	client *http.Client
}

type FinDatasetsConfig struct {
	APIKey  string
	BaseURL string // default api.financialdatasets.ai
	Timeout time.Duration
}

func NewFinDatasetsSource(cfg FinDatasetsConfig) *FinDatasetsSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.financialdatasets.ai"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &FinDatasetsSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *FinDatasetsSource) Name() string { return "financialdatasets" }

func (s *FinDatasetsSource) header() http.Header {
	h := http.Header{}
	if s.cfg.APIKey != "" {
		h.Set("X-API-KEY", s.cfg.APIKey)
	}
	return h
}

type fdPricesResp struct {
	Prices []Price `json:"prices"`
}

func (s *FinDatasetsSource) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]Price, error) {
	u, err := url.Parse(s.cfg.BaseURL + "/prices/")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("ticker", ticker)
	q.Set("interval", "day")
	q.Set("interval_multiplier", "1")
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	u.RawQuery = q.Encode()

	var payload fdPricesResp
	if err := getJSON(ctx, s.client, u.String(), s.header(), &payload); err != nil {
		return nil, err
	}
	prices := payload.Prices
	for i := range prices {
		prices[i].Ticker = ticker
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Time < prices[j].Time })
	if prices == nil {
		prices = []Price{}
	}
	return prices, nil
}

type fdMetricsResp struct {
	FinancialMetrics []FinancialMetrics `json:"financial_metrics"`
}

func (s *FinDatasetsSource) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]FinancialMetrics, error) {
	if limit <= 0 {
		limit = 10
	}
	u, err := url.Parse(s.cfg.BaseURL + "/financial-metrics/")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("ticker", ticker)
	q.Set("report_period_lte", endDate)
	q.Set("period", period)
	q.Set("limit", fmt.Sprintf("%d", limit))
	u.RawQuery = q.Encode()

	var payload fdMetricsResp
	if err := getJSON(ctx, s.client, u.String(), s.header(), &payload); err != nil {
		return nil, err
	}
	out := payload.FinancialMetrics
	for i := range out {
		out[i].Ticker = ticker
	}
	if out == nil {
		out = []FinancialMetrics{}
	}
	return out, nil
}

type fdLineItemsResp struct {
	SearchResults []map[string]any `json:"search_results"`
}

func (s *FinDatasetsSource) SearchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]LineItem, error) {
	if limit <= 0 {
		limit = 10
	}
	body, err := json.Marshal(map[string]any{
		"tickers":    []string{ticker},
		"line_items": items,
		"end_date":   endDate,
		"period":     period,
		"limit":      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("encode line-item request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/financials/search/line-items", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-KEY", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request financialdatasets: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read financialdatasets: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("financialdatasets returned status %d", resp.StatusCode)
	}
	var payload fdLineItemsResp
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode financialdatasets: %w", err)
	}

	out := make([]LineItem, 0, len(payload.SearchResults))
	for _, rec := range payload.SearchResults {
		li := LineItem{
			Ticker:       ticker,
			ReportPeriod: fields.String(rec["report_period"]),
			Period:       fields.String(rec["period"]),
			Currency:     fields.String(rec["currency"]),
			Items:        make(map[string]*float64, len(items)),
		}
		if li.Period == "" {
			li.Period = period
		}
		for _, item := range items {
			li.Items[item] = fields.Float(rec[item])
		}
		out = append(out, li)
	}
	return out, nil
}

type fdInsiderResp struct {
	InsiderTrades []InsiderTrade `json:"insider_trades"`
}

func (s *FinDatasetsSource) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]InsiderTrade, error) {
	if limit <= 0 {
		limit = 1000
	}
	u, err := url.Parse(s.cfg.BaseURL + "/insider-trades/")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("ticker", ticker)
	q.Set("filing_date_lte", endDate)
	if startDate != "" {
		q.Set("filing_date_gte", startDate)
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	u.RawQuery = q.Encode()

	var payload fdInsiderResp
	if err := getJSON(ctx, s.client, u.String(), s.header(), &payload); err != nil {
		return nil, err
	}
	trades := payload.InsiderTrades
	for i := range trades {
		trades[i].Ticker = ticker
	}
	if trades == nil {
		trades = []InsiderTrade{}
	}
	return trades, nil
}

type fdNewsResp struct {
	News []CompanyNews `json:"news"`
}

func (s *FinDatasetsSource) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]CompanyNews, error) {
	if limit <= 0 {
		limit = 1000
	}
	u, err := url.Parse(s.cfg.BaseURL + "/company-news/")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("ticker", ticker)
	q.Set("end_date", endDate)
	if startDate != "" {
		q.Set("start_date", startDate)
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	u.RawQuery = q.Encode()

	var payload fdNewsResp
	if err := getJSON(ctx, s.client, u.String(), s.header(), &payload); err != nil {
		return nil, err
	}
	news := payload.News
	for i := range news {
		news[i].Ticker = ticker
	}
	if news == nil {
		news = []CompanyNews{}
	}
	return news, nil
}

// GetMarketCap reads the latest financial-metrics snapshot; the vendor
// has no cheaper single-value endpoint.
func (s *FinDatasetsSource) GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error) {
	metrics, err := s.GetFinancialMetrics(ctx, ticker, endDate, "ttm", 1)
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, nil
	}
	return metrics[0].MarketCap, nil
}

func (s *FinDatasetsSource) GetPriceData(ctx context.Context, ticker, startDate, endDate string) (PriceSeries, error) {
	prices, err := s.GetPrices(ctx, ticker, startDate, endDate)
	if err != nil {
		return PriceSeries{}, err
	}
	return s.PricesToSeries(prices), nil
}

func (s *FinDatasetsSource) PricesToSeries(prices []Price) PriceSeries {
	return pricesToSeries(prices, false)
}
