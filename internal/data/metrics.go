package data

// Shared derived-ratio formulas. Every adapter computes its metrics
// through this one table so the two vendors can never drift apart.
// All divisions are guarded: a zero or absent denominator makes the
// single affected metric absent, never Inf, NaN or a panic.

// statementFields are the raw values a vendor resolved from its
// statement tables and market snapshot. Any of them may be nil.
type statementFields struct {
	Revenue            *float64
	CostOfRevenue      *float64
	NetIncome          *float64
	EarningsPerShare   *float64
	TotalEquity        *float64
	TotalAssets        *float64
	CurrentAssets      *float64
	CurrentLiabilities *float64
	TotalLiabilities   *float64
	CashAndEquivalents *float64
	SharesOutstanding  *float64
	Inventory          *float64
	Receivables        *float64
	OperatingCashFlow  *float64
	InvestingCashFlow  *float64
	MarketCap          *float64
}

// ratio returns num/den, nil when either side is absent or den is zero.
func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	v := *num / *den
	return &v
}

// sub returns a-b, nil when either side is absent.
func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a - *b
	return &v
}

// add returns a+b, nil when either side is absent.
func add(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a + *b
	return &v
}

// daysOf converts a turnover ratio to a day count: 365/turnover,
// nil unless the turnover is present and positive.
func daysOf(turnover *float64) *float64 {
	if turnover == nil || *turnover <= 0 {
		return nil
	}
	v := 365 / *turnover
	return &v
}

// deriveMetrics fills the derived slots of a FinancialMetrics record
// from resolved raw fields. Vendor-precomputed ratios already set on m
// (e.g. Tushare's pe/pb/ps) are left alone.
func deriveMetrics(m *FinancialMetrics, f statementFields) {
	m.MarketCap = f.MarketCap
	if m.Revenue == nil {
		m.Revenue = f.Revenue
	}
	if m.NetIncome == nil {
		m.NetIncome = f.NetIncome
	}
	if m.EarningsPerShare == nil {
		m.EarningsPerShare = f.EarningsPerShare
	}
	if m.OperatingCashFlow == nil {
		m.OperatingCashFlow = f.OperatingCashFlow
	}

	m.GrossMargin = ratio(sub(f.Revenue, f.CostOfRevenue), f.Revenue)
	m.NetMargin = ratio(f.NetIncome, f.Revenue)
	m.ReturnOnEquity = ratio(f.NetIncome, f.TotalEquity)
	m.ReturnOnInvestedCapital = ratio(f.NetIncome, sub(f.TotalAssets, f.CurrentLiabilities))

	m.BookValuePerShare = ratio(f.TotalEquity, f.SharesOutstanding)
	if m.PriceToEarningsRatio == nil {
		m.PriceToEarningsRatio = ratio(f.MarketCap, f.NetIncome)
	}
	if m.PriceToBookRatio == nil {
		var book *float64
		if m.BookValuePerShare != nil && f.SharesOutstanding != nil {
			v := *m.BookValuePerShare * *f.SharesOutstanding
			book = &v
		}
		m.PriceToBookRatio = ratio(f.MarketCap, book)
	}
	if m.PriceToSalesRatio == nil {
		m.PriceToSalesRatio = ratio(f.MarketCap, f.Revenue)
	}

	if m.FreeCashFlow == nil {
		m.FreeCashFlow = sub(f.OperatingCashFlow, f.InvestingCashFlow)
	}
	m.FreeCashFlowYield = ratio(m.FreeCashFlow, f.MarketCap)
	m.EnterpriseValue = sub(add(f.MarketCap, f.TotalLiabilities), f.CashAndEquivalents)

	m.CurrentRatio = ratio(f.CurrentAssets, f.CurrentLiabilities)
	m.DebtToEquity = ratio(f.TotalLiabilities, f.TotalEquity)
	m.AssetTurnover = ratio(f.Revenue, f.TotalAssets)
	m.InventoryTurnover = ratio(f.CostOfRevenue, f.Inventory)
	m.DaysInventoryOnHand = daysOf(m.InventoryTurnover)
	m.ReceivablesTurnover = ratio(f.Revenue, f.Receivables)
	m.DaysSalesOutstanding = daysOf(m.ReceivablesTurnover)
}
