package data

// Price is one canonical daily bar. Time carries the trade date in
// YYYY-MM-DD form regardless of how the vendor formats it. Amount (total
// traded value) is only reported by the Chinese vendors.
type Price struct {
	Ticker string   `json:"ticker,omitempty"`
	Time   string   `json:"time"`
	Open   float64  `json:"open"`
	Close  float64  `json:"close"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Volume int64    `json:"volume"`
	Amount *float64 `json:"amount,omitempty"`
}

// FinancialMetrics is the canonical snapshot of a company's latest
// reported fundamentals plus derived ratios. Optional numerics are
// pointers: absent is nil, never zero.
type FinancialMetrics struct {
	Ticker       string `json:"ticker"`
	ReportPeriod string `json:"report_period"`
	Period       string `json:"period"`
	Currency     string `json:"currency"`

	MarketCap       *float64 `json:"market_cap"`
	EnterpriseValue *float64 `json:"enterprise_value"`

	PriceToEarningsRatio *float64 `json:"price_to_earnings_ratio"`
	PriceToBookRatio     *float64 `json:"price_to_book_ratio"`
	PriceToSalesRatio    *float64 `json:"price_to_sales_ratio"`

	GrossMargin             *float64 `json:"gross_margin"`
	NetMargin               *float64 `json:"net_margin"`
	ReturnOnEquity          *float64 `json:"return_on_equity"`
	ReturnOnInvestedCapital *float64 `json:"return_on_invested_capital"`

	EarningsPerShare  *float64 `json:"earnings_per_share"`
	BookValuePerShare *float64 `json:"book_value_per_share"`

	Revenue           *float64 `json:"revenue"`
	NetIncome         *float64 `json:"net_income"`
	OperatingCashFlow *float64 `json:"operating_cash_flow"`
	FreeCashFlow      *float64 `json:"free_cash_flow"`
	FreeCashFlowYield *float64 `json:"free_cash_flow_yield"`

	CurrentRatio         *float64 `json:"current_ratio"`
	DebtToEquity         *float64 `json:"debt_to_equity"`
	DividendYield        *float64 `json:"dividend_yield"`
	AssetTurnover        *float64 `json:"asset_turnover"`
	InventoryTurnover    *float64 `json:"inventory_turnover"`
	DaysInventoryOnHand  *float64 `json:"days_inventory_on_hand"`
	ReceivablesTurnover  *float64 `json:"receivables_turnover"`
	DaysSalesOutstanding *float64 `json:"days_sales_outstanding"`
}

// LineItem is the answer to one line-item search: a slot for every
// requested item, nil when the item resolved in none of the statement
// tables.
type LineItem struct {
	Ticker       string              `json:"ticker"`
	ReportPeriod string              `json:"report_period"`
	Period       string              `json:"period"`
	Currency     string              `json:"currency"`
	Items        map[string]*float64 `json:"items"`
}

// InsiderTrade is one reported insider transaction.
type InsiderTrade struct {
	Ticker                   string   `json:"ticker"`
	Name                     string   `json:"name,omitempty"`
	Title                    string   `json:"title,omitempty"`
	TransactionDate          string   `json:"transaction_date,omitempty"`
	TransactionShares        *float64 `json:"transaction_shares"`
	TransactionPricePerShare *float64 `json:"transaction_price_per_share"`
	SharesOwnedAfter         *float64 `json:"shares_owned_after_transaction"`
	FilingDate               string   `json:"filing_date,omitempty"`
}

// CompanyNews is one news article about a company.
type CompanyNews struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Source    string `json:"source,omitempty"`
	Date      string `json:"date"`
	URL       string `json:"url,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
}

// PriceSeries is the columnar rendering of a price sequence, ordered by
// ascending date. The Chinese vendors additionally render the traded
// amount column.
type PriceSeries struct {
	Dates  []string  `json:"dates"`
	Open   []float64 `json:"open"`
	Close  []float64 `json:"close"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Volume []int64   `json:"volume"`
	Amount []float64 `json:"amount,omitempty"`
}

func (s PriceSeries) Len() int { return len(s.Dates) }
