package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"stock-data-gateway/internal/fields"
)

// EastmoneySource is the primary Chinese-market adapter. It reads the
// public Eastmoney quote endpoints: kline history for prices, the
// datacenter report API for the three financial statements and the
// push2 spot list for market capitalization.
//
// Eastmoney column names drift between Chinese labels and UPPER_SNAKE
// report keys depending on endpoint and vintage, which is exactly what
// the field resolver is for: every extraction below goes through alias
// lists instead of hard-coded columns.
type EastmoneySource struct {
	cfg    EastmoneyConfig
	client *http.Client
}

type EastmoneyConfig struct {
	HistBaseURL string // kline endpoint, default push2his.eastmoney.com
	PushBaseURL string // spot list endpoint, default push2.eastmoney.com
	DataBaseURL string // datacenter report endpoint
	Timeout     time.Duration
}

func NewEastmoneySource(cfg EastmoneyConfig) *EastmoneySource {
	if cfg.HistBaseURL == "" {
		cfg.HistBaseURL = "https://push2his.eastmoney.com"
	}
	if cfg.PushBaseURL == "" {
		cfg.PushBaseURL = "https://push2.eastmoney.com"
	}
	if cfg.DataBaseURL == "" {
		cfg.DataBaseURL = "https://datacenter-web.eastmoney.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &EastmoneySource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *EastmoneySource) Name() string { return "eastmoney" }

// Price-table aliases: the kline endpoint labels columns in Chinese,
// older mirrors use English.
var emPriceAliases = map[string][]string{
	"date":   {"日期", "DATE", "trade_date"},
	"open":   {"开盘", "OPEN"},
	"close":  {"收盘", "CLOSE"},
	"high":   {"最高", "HIGH"},
	"low":    {"最低", "LOW"},
	"volume": {"成交量", "VOLUME", "vol"},
	"amount": {"成交额", "AMOUNT"},
}

// Statement aliases: canonical field name to the Chinese label and the
// datacenter report key for the same figure.
var emStatementAliases = map[string][]string{
	"revenue":              {"营业总收入", "TOTAL_OPERATE_INCOME"},
	"cost_of_revenue":      {"营业总成本", "TOTAL_OPERATE_COST"},
	"net_income":           {"净利润", "NETPROFIT", "PARENT_NETPROFIT"},
	"earnings_per_share":   {"基本每股收益", "BASIC_EPS"},
	"total_equity":         {"所有者权益合计", "股东权益合计", "TOTAL_EQUITY"},
	"total_assets":         {"资产总计", "TOTAL_ASSETS"},
	"current_assets":       {"流动资产合计", "TOTAL_CURRENT_ASSETS"},
	"current_liabilities":  {"流动负债合计", "TOTAL_CURRENT_LIAB"},
	"total_liabilities":    {"负债合计", "TOTAL_LIABILITIES"},
	"cash_and_equivalents": {"货币资金", "MONETARYFUNDS"},
	"shares_outstanding":   {"股本", "实收资本(或股本)", "SHARE_CAPITAL"},
	"inventory":            {"存货", "INVENTORY"},
	"receivables":          {"应收账款", "ACCOUNTS_RECE"},
	"operating_cash_flow":  {"经营活动产生的现金流量净额", "NETCASH_OPERATE"},
	"investing_cash_flow":  {"投资活动产生的现金流量净额", "NETCASH_INVEST"},
	"financing_cash_flow":  {"筹资活动产生的现金流量净额", "NETCASH_FINANCE"},
	"free_cash_flow":       {"自由现金流", "FREE_CASHFLOW"},
	"capital_expenditure":  {"购建固定资产、无形资产和其他长期资产支付的现金", "CONSTRUCT_LONG_ASSET"},
}

// snapshot aliases for the spot list.
var emSnapshotAliases = map[string][]string{
	"code":       {"代码", "CODE", "f12"},
	"market_cap": {"总市值", "TOTAL_MARKET_CAP", "f20"},
}

func emAliases(name string) []string {
	return append([]string{name}, emStatementAliases[name]...)
}

func (s *EastmoneySource) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]Price, error) {
	table, err := s.fetchKlines(ctx, ticker, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return []Price{}, nil
	}

	cols := map[string]string{}
	for _, name := range []string{"date", "open", "close", "high", "low", "volume", "amount"} {
		col, ok := fields.Resolve(table.Columns, emPriceAliases[name]...)
		if !ok {
			return nil, fmt.Errorf("eastmoney price table: column %s not found", name)
		}
		cols[name] = col
	}

	prices := make([]Price, 0, len(table.Rows))
	for i, row := range table.Rows {
		date := fields.String(row[cols["date"]])
		open := fields.Float(row[cols["open"]])
		closeV := fields.Float(row[cols["close"]])
		high := fields.Float(row[cols["high"]])
		low := fields.Float(row[cols["low"]])
		volume, volOK := fields.Int(row[cols["volume"]])
		amount := fields.Float(row[cols["amount"]])
		// Every price-row field is mandatory: a bad row fails the call
		// rather than producing a silently truncated series.
		if date == "" || open == nil || closeV == nil || high == nil || low == nil || !volOK || amount == nil {
			return nil, fmt.Errorf("eastmoney price table: unparseable row %d for %s", i, ticker)
		}
		prices = append(prices, Price{
			Ticker: ticker,
			Time:   date,
			Open:   *open,
			Close:  *closeV,
			High:   *high,
			Low:    *low,
			Volume: volume,
			Amount: amount,
		})
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Time < prices[j].Time })
	return prices, nil
}

func (s *EastmoneySource) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]FinancialMetrics, error) {
	income, balance, cash, err := s.fetchStatements(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if income.Empty() || balance.Empty() || cash.Empty() {
		return []FinancialMetrics{}, nil
	}
	marketCap, err := s.GetMarketCap(ctx, ticker, endDate)
	if err != nil {
		return nil, err
	}

	f := statementFields{
		Revenue:            income.FloatCell(0, emAliases("revenue")...),
		CostOfRevenue:      income.FloatCell(0, emAliases("cost_of_revenue")...),
		NetIncome:          income.FloatCell(0, emAliases("net_income")...),
		EarningsPerShare:   income.FloatCell(0, emAliases("earnings_per_share")...),
		TotalEquity:        balance.FloatCell(0, emAliases("total_equity")...),
		TotalAssets:        balance.FloatCell(0, emAliases("total_assets")...),
		CurrentAssets:      balance.FloatCell(0, emAliases("current_assets")...),
		CurrentLiabilities: balance.FloatCell(0, emAliases("current_liabilities")...),
		TotalLiabilities:   balance.FloatCell(0, emAliases("total_liabilities")...),
		CashAndEquivalents: balance.FloatCell(0, emAliases("cash_and_equivalents")...),
		SharesOutstanding:  balance.FloatCell(0, emAliases("shares_outstanding")...),
		Inventory:          balance.FloatCell(0, emAliases("inventory")...),
		Receivables:        balance.FloatCell(0, emAliases("receivables")...),
		OperatingCashFlow:  cash.FloatCell(0, emAliases("operating_cash_flow")...),
		InvestingCashFlow:  cash.FloatCell(0, emAliases("investing_cash_flow")...),
		MarketCap:          marketCap,
	}

	m := FinancialMetrics{
		Ticker:       ticker,
		ReportPeriod: endDate,
		Period:       period,
		Currency:     "CNY",
	}
	deriveMetrics(&m, f)
	return []FinancialMetrics{m}, nil
}

func (s *EastmoneySource) SearchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]LineItem, error) {
	income, balance, cash, err := s.fetchStatements(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if income.Empty() || balance.Empty() || cash.Empty() {
		return []LineItem{}, nil
	}
	li := searchStatements(ticker, items, endDate, period, "CNY",
		[]fields.Table{income, balance, cash}, emStatementAliases)
	return []LineItem{li}, nil
}

// Eastmoney exposes no insider-trade or per-company news feed usable
// here; both are capability-gated to empty results.

func (s *EastmoneySource) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]InsiderTrade, error) {
	return []InsiderTrade{}, nil
}

func (s *EastmoneySource) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]CompanyNews, error) {
	return []CompanyNews{}, nil
}

func (s *EastmoneySource) GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error) {
	table, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	codeCol, ok := fields.Resolve(table.Columns, emSnapshotAliases["code"]...)
	if !ok {
		return nil, nil
	}
	code := tickerCode(ticker)
	for i, row := range table.Rows {
		if fields.String(row[codeCol]) == code {
			return table.FloatCell(i, emSnapshotAliases["market_cap"]...), nil
		}
	}
	// Ticker not listed in the snapshot: absent, not zero.
	return nil, nil
}

func (s *EastmoneySource) GetPriceData(ctx context.Context, ticker, startDate, endDate string) (PriceSeries, error) {
	prices, err := s.GetPrices(ctx, ticker, startDate, endDate)
	if err != nil {
		return PriceSeries{}, err
	}
	return s.PricesToSeries(prices), nil
}

func (s *EastmoneySource) PricesToSeries(prices []Price) PriceSeries {
	return pricesToSeries(prices, true)
}

// --- HTTP client ---

func secID(ticker string) (string, error) {
	code := tickerCode(ticker)
	switch strings.ToUpper(tickerSuffix(ticker)) {
	case "SH":
		return "1." + code, nil
	case "SZ":
		return "0." + code, nil
	}
	return "", fmt.Errorf("not a china ticker: %s", ticker)
}

type emKlineResp struct {
	Data *struct {
		Klines []string `json:"klines"`
	} `json:"data"`
}

// fetchKlines returns the daily bars as a table with the vendor's
// Chinese column labels, the shape the resolver expects to work on.
func (s *EastmoneySource) fetchKlines(ctx context.Context, ticker, startDate, endDate string) (fields.Table, error) {
	sec, err := secID(ticker)
	if err != nil {
		return fields.Table{}, err
	}
	u, err := url.Parse(s.cfg.HistBaseURL + "/api/qt/stock/kline/get")
	if err != nil {
		return fields.Table{}, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("secid", sec)
	q.Set("klt", "101")
	q.Set("fqt", "1")
	q.Set("beg", formatDate(startDate))
	q.Set("end", formatDate(endDate))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")
	u.RawQuery = q.Encode()

	var payload emKlineResp
	if err := getJSON(ctx, s.client, u.String(), nil, &payload); err != nil {
		return fields.Table{}, err
	}
	if payload.Data == nil {
		return fields.Table{}, nil
	}

	columns := []string{"日期", "开盘", "收盘", "最高", "最低", "成交量", "成交额"}
	rows := make([]map[string]any, 0, len(payload.Data.Klines))
	for _, line := range payload.Data.Klines {
		cells := strings.Split(line, ",")
		if len(cells) < len(columns) {
			continue
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = cells[i]
		}
		rows = append(rows, row)
	}
	return fields.Table{Columns: columns, Rows: rows}, nil
}

type emReportResp struct {
	Result *struct {
		Data []map[string]any `json:"data"`
	} `json:"result"`
}

func (s *EastmoneySource) fetchStatements(ctx context.Context, ticker string) (income, balance, cash fields.Table, err error) {
	code := tickerCode(ticker)
	if income, err = s.fetchReport(ctx, "RPT_DMSK_FN_INCOME", code); err != nil {
		return
	}
	if balance, err = s.fetchReport(ctx, "RPT_DMSK_FN_BALANCE", code); err != nil {
		return
	}
	cash, err = s.fetchReport(ctx, "RPT_DMSK_FN_CASHFLOW", code)
	return
}

func (s *EastmoneySource) fetchReport(ctx context.Context, reportName, code string) (fields.Table, error) {
	u, err := url.Parse(s.cfg.DataBaseURL + "/api/data/v1/get")
	if err != nil {
		return fields.Table{}, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("reportName", reportName)
	q.Set("columns", "ALL")
	q.Set("filter", fmt.Sprintf("(SECURITY_CODE=%q)", code))
	q.Set("sortColumns", "REPORT_DATE")
	q.Set("sortTypes", "-1")
	q.Set("pageSize", "8")
	u.RawQuery = q.Encode()

	var payload emReportResp
	if err := getJSON(ctx, s.client, u.String(), nil, &payload); err != nil {
		return fields.Table{}, err
	}
	if payload.Result == nil {
		return fields.Table{}, nil
	}
	return tableFromRecords(payload.Result.Data), nil
}

type emSpotResp struct {
	Data *struct {
		Diff []map[string]any `json:"diff"`
	} `json:"data"`
}

// fetchSnapshot pulls the whole-market spot list once per call, the
// same table the metrics path reads its market cap from.
func (s *EastmoneySource) fetchSnapshot(ctx context.Context) (fields.Table, error) {
	u, err := url.Parse(s.cfg.PushBaseURL + "/api/qt/clist/get")
	if err != nil {
		return fields.Table{}, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("pn", "1")
	q.Set("pz", "6000")
	q.Set("po", "1")
	q.Set("fltt", "2")
	q.Set("fields", "f12,f14,f2,f20,f21")
	q.Set("fs", "m:0 t:6,m:0 t:80,m:1 t:2,m:1 t:23")
	u.RawQuery = q.Encode()

	var payload emSpotResp
	if err := getJSON(ctx, s.client, u.String(), nil, &payload); err != nil {
		return fields.Table{}, err
	}
	if payload.Data == nil {
		return fields.Table{}, nil
	}

	// Map the push2 field codes to the labels the rest of the adapter
	// resolves against; the spot value is already denominated in yuan.
	columns := []string{"代码", "名称", "最新价", "总市值", "流通市值"}
	keys := []string{"f12", "f14", "f2", "f20", "f21"}
	rows := make([]map[string]any, 0, len(payload.Data.Diff))
	for _, rec := range payload.Data.Diff {
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = rec[keys[i]]
		}
		rows = append(rows, row)
	}
	return fields.Table{Columns: columns, Rows: rows}, nil
}
