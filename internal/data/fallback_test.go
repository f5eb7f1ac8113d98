package data

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFallbackFirstSourceWins(t *testing.T) {
	t.Parallel()

	primary := &stubSource{name: "a", prices: []Price{{Ticker: "600519.SH", Time: "2024-01-02"}}}
	secondary := &stubSource{name: "b", prices: []Price{{Ticker: "600519.SH", Time: "2024-01-03"}}}
	chain := NewFallbackSource("china", primary, secondary)

	prices, err := chain.GetPrices(context.Background(), "600519.SH", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Equal(t, "2024-01-02", prices[0].Time)
	require.Empty(t, secondary.calls)
}

func TestFallbackSkipsFailingSource(t *testing.T) {
	t.Parallel()

	primary := &stubSource{name: "a", err: errors.New("rate limited")}
	secondary := &stubSource{name: "b", prices: []Price{{Ticker: "600519.SH", Time: "2024-01-02"}}}
	chain := NewFallbackSource("china", primary, secondary)

	prices, err := chain.GetPrices(context.Background(), "600519.SH", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, prices, 1)
	require.Len(t, primary.calls, 1)
	require.Len(t, secondary.calls, 1)
}

// A source that answers successfully but empty does not stop the chain.
func TestFallbackSkipsEmptySource(t *testing.T) {
	t.Parallel()

	primary := &stubSource{name: "a"}
	secondary := &stubSource{name: "b", metrics: []FinancialMetrics{{Ticker: "600519.SH"}}}
	chain := NewFallbackSource("china", primary, secondary)

	metrics, err := chain.GetFinancialMetrics(context.Background(), "600519.SH", "2024-03-31", "ttm", 1)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
}

func TestFallbackAllFail(t *testing.T) {
	t.Parallel()

	first := &stubSource{name: "a", err: errors.New("down")}
	second := &stubSource{name: "b", err: errors.New("also down")}
	chain := NewFallbackSource("china", first, second)

	_, err := chain.GetPrices(context.Background(), "600519.SH", "2024-01-01", "2024-01-31")
	require.Error(t, err)
	require.Contains(t, err.Error(), "also down")
}

// All sources empty but none erroring is an empty answer, not an error.
func TestFallbackAllEmpty(t *testing.T) {
	t.Parallel()

	chain := NewFallbackSource("china", &stubSource{name: "a"}, &stubSource{name: "b"})
	prices, err := chain.GetPrices(context.Background(), "600519.SH", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.NotNil(t, prices)
	require.Empty(t, prices)
}

func TestFallbackNoSources(t *testing.T) {
	t.Parallel()

	chain := NewFallbackSource("china")
	_, err := chain.GetPrices(context.Background(), "600519.SH", "2024-01-01", "2024-01-31")
	require.Error(t, err)
}

func TestFallbackGetMarketCap(t *testing.T) {
	t.Parallel()

	// nil from the primary, a value from the secondary.
	chain := NewFallbackSource("china",
		&stubSource{name: "a"},
		&stubSource{name: "b", cap: f(4000)})

	mcap, err := chain.GetMarketCap(context.Background(), "600519.SH", "2024-03-31")
	require.NoError(t, err)
	require.NotNil(t, mcap)
	require.Equal(t, 4000.0, *mcap)
}

// Every source healthy but none listing the ticker is an absent value,
// not an error.
func TestFallbackGetMarketCapAllAbsent(t *testing.T) {
	t.Parallel()

	chain := NewFallbackSource("china", &stubSource{name: "a"}, &stubSource{name: "b"})
	mcap, err := chain.GetMarketCap(context.Background(), "999999.SH", "2024-03-31")
	require.NoError(t, err)
	require.Nil(t, mcap)
}

func TestFallbackGetMarketCapAllFail(t *testing.T) {
	t.Parallel()

	chain := NewFallbackSource("china",
		&stubSource{name: "a", err: errors.New("down")},
		&stubSource{name: "b", err: errors.New("also down")})
	_, err := chain.GetMarketCap(context.Background(), "600519.SH", "2024-03-31")
	require.Error(t, err)
	require.Contains(t, err.Error(), "also down")
}

func TestFallbackGetMarketCapNoSources(t *testing.T) {
	t.Parallel()

	chain := NewFallbackSource("china")
	_, err := chain.GetMarketCap(context.Background(), "600519.SH", "2024-03-31")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no sources configured")
}

func TestFallbackPricesToSeriesUsesPrimary(t *testing.T) {
	t.Parallel()

	chain := NewFallbackSource("china", &stubSource{name: "a"}, &stubSource{name: "b"})
	s := chain.PricesToSeries(nil)
	require.Equal(t, []string{"a"}, s.Dates)
}
