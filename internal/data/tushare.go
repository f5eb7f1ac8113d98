package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"stock-data-gateway/internal/fields"
)

// TushareSource is the alternate Chinese-market adapter. Tushare's API
// is a single POST endpoint taking an api_name plus params and
// answering fields/items pairs, which map directly onto the resolver's
// table model.
type TushareSource struct {
	cfg    TushareConfig
	client *http.Client
}

type TushareConfig struct {
	Token   string
	BaseURL string // default api.tushare.pro
	Timeout time.Duration
}

func NewTushareSource(cfg TushareConfig) *TushareSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tushare.pro"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &TushareSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *TushareSource) Name() string { return "tushare" }

var tsPriceAliases = map[string][]string{
	"date":   {"trade_date", "TRADE_DATE"},
	"open":   {"open"},
	"close":  {"close"},
	"high":   {"high"},
	"low":    {"low"},
	"volume": {"vol", "volume"},
	"amount": {"amount"},
}

var tsStatementAliases = map[string][]string{
	"revenue":              {"revenue", "total_revenue"},
	"cost_of_revenue":      {"total_cogs", "oper_cost"},
	"net_income":           {"n_income", "net_profit"},
	"earnings_per_share":   {"basic_eps"},
	"total_equity":         {"total_hldr_eqy_exc_min_int", "total_hldr_eqy_inc_min_int"},
	"total_assets":         {"total_assets"},
	"current_assets":       {"total_cur_assets"},
	"current_liabilities":  {"total_cur_liab"},
	"total_liabilities":    {"total_liab"},
	"cash_and_equivalents": {"money_cap"},
	"shares_outstanding":   {"total_share"},
	"inventory":            {"inventories"},
	"receivables":          {"accounts_receiv"},
	"operating_cash_flow":  {"n_cashflow_act"},
	"investing_cash_flow":  {"n_cashflow_inv_act"},
	"financing_cash_flow":  {"n_cash_flows_fnc_act"},
	"free_cash_flow":       {"free_cashflow"},
	"capital_expenditure":  {"c_pay_acq_const_fiolta"},
}

func tsAliases(name string) []string {
	return append([]string{name}, tsStatementAliases[name]...)
}

func (s *TushareSource) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]Price, error) {
	table, err := s.call(ctx, "daily", map[string]string{
		"ts_code":    ticker,
		"start_date": formatDate(startDate),
		"end_date":   formatDate(endDate),
	})
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return []Price{}, nil
	}

	cols := map[string]string{}
	for _, name := range []string{"date", "open", "close", "high", "low", "volume"} {
		col, ok := fields.Resolve(table.Columns, tsPriceAliases[name]...)
		if !ok {
			return nil, fmt.Errorf("tushare daily table: column %s not found", name)
		}
		cols[name] = col
	}
	amountCol, hasAmount := fields.Resolve(table.Columns, tsPriceAliases["amount"]...)

	prices := make([]Price, 0, len(table.Rows))
	for i, row := range table.Rows {
		date := fields.String(row[cols["date"]])
		open := fields.Float(row[cols["open"]])
		closeV := fields.Float(row[cols["close"]])
		high := fields.Float(row[cols["high"]])
		low := fields.Float(row[cols["low"]])
		volume, volOK := fields.Int(row[cols["volume"]])
		if date == "" || open == nil || closeV == nil || high == nil || low == nil || !volOK {
			return nil, fmt.Errorf("tushare daily table: unparseable row %d for %s", i, ticker)
		}
		p := Price{
			Ticker: ticker,
			Time:   formatDateBack(date),
			Open:   *open,
			Close:  *closeV,
			High:   *high,
			Low:    *low,
			Volume: volume,
		}
		if hasAmount {
			p.Amount = fields.Float(row[amountCol])
		}
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Time < prices[j].Time })
	return prices, nil
}

func (s *TushareSource) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]FinancialMetrics, error) {
	basic, err := s.call(ctx, "daily_basic", map[string]string{
		"ts_code":    ticker,
		"trade_date": formatDate(endDate),
	})
	if err != nil {
		return nil, err
	}
	income, balance, cash, err := s.fetchStatements(ctx, ticker, endDate)
	if err != nil {
		return nil, err
	}
	if basic.Empty() || income.Empty() || balance.Empty() || cash.Empty() {
		return []FinancialMetrics{}, nil
	}

	f := statementFields{
		Revenue:            income.FloatCell(0, tsAliases("revenue")...),
		CostOfRevenue:      income.FloatCell(0, tsAliases("cost_of_revenue")...),
		NetIncome:          income.FloatCell(0, tsAliases("net_income")...),
		EarningsPerShare:   income.FloatCell(0, tsAliases("earnings_per_share")...),
		TotalEquity:        balance.FloatCell(0, tsAliases("total_equity")...),
		TotalAssets:        balance.FloatCell(0, tsAliases("total_assets")...),
		CurrentAssets:      balance.FloatCell(0, tsAliases("current_assets")...),
		CurrentLiabilities: balance.FloatCell(0, tsAliases("current_liabilities")...),
		TotalLiabilities:   balance.FloatCell(0, tsAliases("total_liabilities")...),
		CashAndEquivalents: balance.FloatCell(0, tsAliases("cash_and_equivalents")...),
		SharesOutstanding:  balance.FloatCell(0, tsAliases("shares_outstanding")...),
		Inventory:          balance.FloatCell(0, tsAliases("inventory")...),
		Receivables:        balance.FloatCell(0, tsAliases("receivables")...),
		OperatingCashFlow:  cash.FloatCell(0, tsAliases("operating_cash_flow")...),
		InvestingCashFlow:  cash.FloatCell(0, tsAliases("investing_cash_flow")...),
		MarketCap:          scaleWan(basic.FloatCell(0, "total_mv")),
	}

	// Ratios Tushare precomputes are taken as-is; deriveMetrics only
	// fills the ones still missing.
	m := FinancialMetrics{
		Ticker:               ticker,
		ReportPeriod:         endDate,
		Period:               period,
		Currency:             "CNY",
		PriceToEarningsRatio: basic.FloatCell(0, "pe"),
		PriceToBookRatio:     basic.FloatCell(0, "pb"),
		PriceToSalesRatio:    basic.FloatCell(0, "ps"),
		DividendYield:        basic.FloatCell(0, "dv_ratio"),
		FreeCashFlow:         cash.FloatCell(0, tsAliases("free_cash_flow")...),
	}
	deriveMetrics(&m, f)
	return []FinancialMetrics{m}, nil
}

func (s *TushareSource) SearchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]LineItem, error) {
	income, balance, cash, err := s.fetchStatements(ctx, ticker, endDate)
	if err != nil {
		return nil, err
	}
	if income.Empty() && balance.Empty() && cash.Empty() {
		return []LineItem{}, nil
	}
	li := searchStatements(ticker, items, endDate, period, "CNY",
		[]fields.Table{income, balance, cash}, tsStatementAliases)
	return []LineItem{li}, nil
}

// Tushare has no insider-trade or company-news dataset on the free
// tier; both are capability-gated to empty results.

func (s *TushareSource) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]InsiderTrade, error) {
	return []InsiderTrade{}, nil
}

func (s *TushareSource) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]CompanyNews, error) {
	return []CompanyNews{}, nil
}

func (s *TushareSource) GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error) {
	table, err := s.call(ctx, "daily_basic", map[string]string{
		"ts_code":    ticker,
		"trade_date": formatDate(endDate),
		"fields":     "ts_code,trade_date,total_mv",
	})
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return nil, nil
	}
	return scaleWan(table.FloatCell(0, "total_mv")), nil
}

func (s *TushareSource) GetPriceData(ctx context.Context, ticker, startDate, endDate string) (PriceSeries, error) {
	prices, err := s.GetPrices(ctx, ticker, startDate, endDate)
	if err != nil {
		return PriceSeries{}, err
	}
	return s.PricesToSeries(prices), nil
}

func (s *TushareSource) PricesToSeries(prices []Price) PriceSeries {
	return pricesToSeries(prices, true)
}

func (s *TushareSource) fetchStatements(ctx context.Context, ticker, endDate string) (income, balance, cash fields.Table, err error) {
	params := map[string]string{
		"ts_code": ticker,
		"period":  formatDate(endDate),
	}
	if income, err = s.call(ctx, "income", params); err != nil {
		return
	}
	if balance, err = s.call(ctx, "balancesheet", params); err != nil {
		return
	}
	cash, err = s.call(ctx, "cashflow", params)
	return
}

// total_mv is denominated in 万元; canonical records carry yuan.
func scaleWan(v *float64) *float64 {
	if v == nil {
		return nil
	}
	scaled := *v * 1e4
	return &scaled
}

// --- HTTP client ---

type tsRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type tsResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string `json:"fields"`
		Items  [][]any  `json:"items"`
	} `json:"data"`
}

// call invokes one Tushare api_name and returns the response as a
// table whose column order is the vendor's own fields list.
func (s *TushareSource) call(ctx context.Context, apiName string, params map[string]string) (fields.Table, error) {
	if s.cfg.Token == "" {
		return fields.Table{}, fmt.Errorf("tushare token not configured")
	}
	reqBody := tsRequest{APIName: apiName, Token: s.cfg.Token, Params: make(map[string]string, len(params))}
	for k, v := range params {
		// "fields" travels in its own request slot, not as a param.
		if k == "fields" {
			reqBody.Fields = v
			continue
		}
		reqBody.Params[k] = v
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return fields.Table{}, fmt.Errorf("encode tushare request: %w", err)
	}

	var payload tsResponse
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, bytes.NewReader(raw))
		if err != nil {
			return fields.Table{}, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			if shouldRetry(err) && attempt < 2 {
				lastErr = err
				time.Sleep(150 * time.Millisecond)
				continue
			}
			return fields.Table{}, fmt.Errorf("request tushare: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if shouldRetry(err) && attempt < 2 {
				lastErr = err
				time.Sleep(150 * time.Millisecond)
				continue
			}
			return fields.Table{}, fmt.Errorf("read tushare: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fields.Table{}, fmt.Errorf("tushare returned status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return fields.Table{}, fmt.Errorf("decode tushare: %w", err)
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return fields.Table{}, fmt.Errorf("request tushare: %w", lastErr)
	}
	if payload.Code != 0 {
		return fields.Table{}, fmt.Errorf("tushare %s: %s", apiName, payload.Msg)
	}
	if payload.Data == nil {
		return fields.Table{}, nil
	}

	rows := make([]map[string]any, 0, len(payload.Data.Items))
	for _, item := range payload.Data.Items {
		row := make(map[string]any, len(payload.Data.Fields))
		for i, col := range payload.Data.Fields {
			if i < len(item) {
				row[col] = item[i]
			}
		}
		rows = append(rows, row)
	}
	return fields.Table{Columns: payload.Data.Fields, Rows: rows}, nil
}
