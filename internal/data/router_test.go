package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubSource answers every operation with recognizable canned data so
// forwarding can be asserted.
type stubSource struct {
	name string

	prices  []Price
	metrics []FinancialMetrics
	items   []LineItem
	cap     *float64
	err     error

	calls []string
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]Price, error) {
	s.calls = append(s.calls, "prices:"+ticker)
	return s.prices, s.err
}

func (s *stubSource) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]FinancialMetrics, error) {
	s.calls = append(s.calls, "metrics:"+ticker)
	return s.metrics, s.err
}

func (s *stubSource) SearchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]LineItem, error) {
	s.calls = append(s.calls, "line_items:"+ticker)
	return s.items, s.err
}

func (s *stubSource) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]InsiderTrade, error) {
	s.calls = append(s.calls, "insider:"+ticker)
	return []InsiderTrade{}, s.err
}

func (s *stubSource) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]CompanyNews, error) {
	s.calls = append(s.calls, "news:"+ticker)
	return []CompanyNews{}, s.err
}

func (s *stubSource) GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error) {
	s.calls = append(s.calls, "mcap:"+ticker)
	return s.cap, s.err
}

func (s *stubSource) GetPriceData(ctx context.Context, ticker, startDate, endDate string) (PriceSeries, error) {
	s.calls = append(s.calls, "price_data:"+ticker)
	return s.PricesToSeries(s.prices), s.err
}

func (s *stubSource) PricesToSeries(prices []Price) PriceSeries {
	// Marker rendering: the first date slot names the source.
	return PriceSeries{Dates: []string{s.name}}
}

func TestRouterRoutesByMarket(t *testing.T) {
	t.Parallel()

	china := &stubSource{name: "cn"}
	global := &stubSource{name: "global"}
	r := NewRouter(china, global)

	require.Equal(t, "cn", r.Route("600519.SH").Name())
	require.Equal(t, "cn", r.Route("000001.SZ").Name())
	require.Equal(t, "global", r.Route("AAPL").Name())
	require.Equal(t, "global", r.Route("600519.HK").Name())
	require.Equal(t, "global", r.Route("A.B.C").Name())
}

func TestRouterForwardsUnchanged(t *testing.T) {
	t.Parallel()

	china := &stubSource{name: "cn", prices: []Price{{Ticker: "600519.SH", Time: "2024-01-02"}}}
	global := &stubSource{name: "global", cap: f(3e12)}
	r := NewRouter(china, global)
	ctx := context.Background()

	prices, err := r.GetPrices(ctx, "600519.SH", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, prices, 1)
	require.Equal(t, []string{"prices:600519.SH"}, china.calls)
	require.Empty(t, global.calls)

	mcap, err := r.GetMarketCap(ctx, "AAPL", "2024-01-31")
	require.NoError(t, err)
	require.NotNil(t, mcap)
	require.Equal(t, []string{"mcap:AAPL"}, global.calls)
}

func TestRouterPricesToSeriesSniffsTicker(t *testing.T) {
	t.Parallel()

	china := &stubSource{name: "cn"}
	global := &stubSource{name: "global"}
	r := NewRouter(china, global)

	cnSeries := r.PricesToSeries([]Price{{Ticker: "600519.SH", Time: "2024-01-02"}})
	require.Equal(t, []string{"cn"}, cnSeries.Dates)

	usSeries := r.PricesToSeries([]Price{{Ticker: "AAPL", Time: "2024-01-02"}})
	require.Equal(t, []string{"global"}, usSeries.Dates)

	// No embedded ticker, and the empty sequence, both fall back to the
	// global rendering.
	noTicker := r.PricesToSeries([]Price{{Time: "2024-01-02"}})
	require.Equal(t, []string{"global"}, noTicker.Dates)
	empty := r.PricesToSeries(nil)
	require.Equal(t, []string{"global"}, empty.Dates)
}

// Rendering a constructed price back out must reproduce the numbers
// exactly: no string round-trip losses.
func TestPricesToSeriesRoundTrip(t *testing.T) {
	t.Parallel()

	amt := 5e7
	p := Price{Ticker: "600519.SH", Time: "2024-01-02", Open: 10.5, High: 11.0, Low: 10.0, Close: 10.8, Volume: 1000000, Amount: &amt}
	s := pricesToSeries([]Price{p}, true)

	require.Equal(t, 1, s.Len())
	require.Equal(t, "2024-01-02", s.Dates[0])
	require.Equal(t, 10.5, s.Open[0])
	require.Equal(t, 11.0, s.High[0])
	require.Equal(t, 10.0, s.Low[0])
	require.Equal(t, 10.8, s.Close[0])
	require.Equal(t, int64(1000000), s.Volume[0])
	require.Equal(t, 5e7, s.Amount[0])

	noAmount := pricesToSeries([]Price{p}, false)
	require.Nil(t, noAmount.Amount)
}
