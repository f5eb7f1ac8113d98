package data

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// fake Tushare dispatching on api_name, the way the real endpoint does.
func newTushareFixture(t *testing.T) *TushareSource {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			APIName string            `json:"api_name"`
			Token   string            `json:"token"`
			Params  map[string]string `json:"params"`
			Fields  string            `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-token", req.Token)

		var fields []string
		var items [][]any
		switch req.APIName {
		case "daily":
			fields = []string{"ts_code", "trade_date", "open", "high", "low", "close", "vol", "amount"}
			items = [][]any{
				{"600519.SH", "20240103", 102.0, 106.0, 101.0, 104.0, 400000.0, 42000.0},
				{"600519.SH", "20240102", 100.0, 105.0, 99.0, 102.0, 500000.0, 50000.0},
			}
		case "daily_basic":
			fields = []string{"ts_code", "trade_date", "pe", "pb", "ps", "dv_ratio", "total_mv"}
			items = [][]any{{"600519.SH", "20240331", 12.3, 2.1, 4.5, 1.2, 400.0}}
		case "income":
			fields = []string{"ts_code", "end_date", "total_revenue", "oper_cost", "n_income", "basic_eps"}
			items = [][]any{{"600519.SH", "20240331", 1000.0, 600.0, 200.0, 2.0}}
		case "balancesheet":
			fields = []string{"ts_code", "end_date", "total_hldr_eqy_exc_min_int", "total_assets", "total_cur_assets", "total_cur_liab", "total_liab", "money_cap", "total_share", "inventories", "accounts_receiv"}
			items = [][]any{{"600519.SH", "20240331", 800.0, 2000.0, 500.0, 400.0, 1200.0, 300.0, 100.0, 120.0, 100.0}}
		case "cashflow":
			fields = []string{"ts_code", "end_date", "n_cashflow_act", "n_cashflow_inv_act", "free_cashflow"}
			items = [][]any{{"600519.SH", "20240331", 250.0, 50.0, 180.0}}
		}
		writeJSON(t, w, map[string]any{
			"code": 0,
			"msg":  "",
			"data": map[string]any{"fields": fields, "items": items},
		})
	}))
	t.Cleanup(srv.Close)
	return NewTushareSource(TushareConfig{Token: "test-token", BaseURL: srv.URL})
}

func TestTushareRequiresToken(t *testing.T) {
	t.Parallel()

	src := NewTushareSource(TushareConfig{})
	_, err := src.GetPrices(context.Background(), "600519.SH", "2024-01-01", "2024-01-31")
	require.Error(t, err)
	require.Contains(t, err.Error(), "token")
}

func TestTushareGetPrices(t *testing.T) {
	t.Parallel()

	src := newTushareFixture(t)
	prices, err := src.GetPrices(context.Background(), "600519.SH", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, prices, 2)

	// trade_date comes back as YYYYMMDD and is normalized; rows sort
	// ascending by date.
	p := prices[0]
	require.Equal(t, "2024-01-02", p.Time)
	require.Equal(t, 100.0, p.Open)
	require.Equal(t, 102.0, p.Close)
	require.Equal(t, 105.0, p.High)
	require.Equal(t, 99.0, p.Low)
	require.Equal(t, int64(500000), p.Volume)
	require.NotNil(t, p.Amount)
	require.Equal(t, 50000.0, *p.Amount)
	require.Equal(t, "2024-01-03", prices[1].Time)
}

func TestTushareGetFinancialMetrics(t *testing.T) {
	t.Parallel()

	src := newTushareFixture(t)
	metrics, err := src.GetFinancialMetrics(context.Background(), "600519.SH", "2024-03-31", "ttm", 1)
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	m := metrics[0]
	require.Equal(t, "CNY", m.Currency)

	// total_mv is reported in 万元 and lands in yuan.
	require.InDelta(t, 4e6, *m.MarketCap, 1e-9)

	// Vendor-precomputed ratios pass through unrecomputed.
	require.Equal(t, 12.3, *m.PriceToEarningsRatio)
	require.Equal(t, 2.1, *m.PriceToBookRatio)
	require.Equal(t, 4.5, *m.PriceToSalesRatio)
	require.Equal(t, 1.2, *m.DividendYield)
	require.Equal(t, 180.0, *m.FreeCashFlow)

	// The rest still derives from the statements.
	require.InDelta(t, 0.4, *m.GrossMargin, 1e-9)
	require.InDelta(t, 0.25, *m.ReturnOnEquity, 1e-9)
	require.InDelta(t, 1.5, *m.DebtToEquity, 1e-9)
}

func TestTushareSearchLineItems(t *testing.T) {
	t.Parallel()

	src := newTushareFixture(t)
	items, err := src.SearchLineItems(context.Background(), "600519.SH",
		[]string{"revenue", "inventory", "free_cash_flow", "unknown"},
		"2024-03-31", "ttm", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	li := items[0]
	require.InDelta(t, 1000.0, *li.Items["revenue"], 1e-9)
	require.InDelta(t, 120.0, *li.Items["inventory"], 1e-9)
	require.InDelta(t, 180.0, *li.Items["free_cash_flow"], 1e-9)
	v, ok := li.Items["unknown"]
	require.True(t, ok)
	require.Nil(t, v)
}

func TestTushareGetMarketCap(t *testing.T) {
	t.Parallel()

	src := newTushareFixture(t)
	mcap, err := src.GetMarketCap(context.Background(), "600519.SH", "2024-03-31")
	require.NoError(t, err)
	require.NotNil(t, mcap)
	require.InDelta(t, 4e6, *mcap, 1e-9)
}

// A 5xx with a non-JSON body is reported as a status error, not a
// decode failure.
func TestTushareHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	t.Cleanup(srv.Close)

	src := NewTushareSource(TushareConfig{Token: "test-token", BaseURL: srv.URL})
	_, err := src.GetPrices(context.Background(), "600519.SH", "2024-01-01", "2024-01-31")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 502")
}

// call must not mutate the caller's params map; "fields" moves into its
// own request slot without disappearing from the argument.
func TestTushareCallLeavesParamsIntact(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params map[string]string `json:"params"`
			Fields string            `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ts_code,trade_date,total_mv", req.Fields)
		require.NotContains(t, req.Params, "fields")
		writeJSON(t, w, map[string]any{"code": 0, "msg": ""})
	}))
	t.Cleanup(srv.Close)

	src := NewTushareSource(TushareConfig{Token: "test-token", BaseURL: srv.URL})
	params := map[string]string{
		"ts_code": "600519.SH",
		"fields":  "ts_code,trade_date,total_mv",
	}
	_, err := src.call(context.Background(), "daily_basic", params)
	require.NoError(t, err)
	require.Equal(t, "ts_code,trade_date,total_mv", params["fields"])
}

func TestTushareAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"code": 2002, "msg": "no permission"})
	}))
	t.Cleanup(srv.Close)

	src := NewTushareSource(TushareConfig{Token: "test-token", BaseURL: srv.URL})
	_, err := src.GetPrices(context.Background(), "600519.SH", "2024-01-01", "2024-01-31")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no permission")
}
