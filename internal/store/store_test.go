package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type entry struct {
	Ticker string   `json:"ticker"`
	Close  *float64 `json:"close"`
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	v := 102.5
	in := []entry{{Ticker: "600519.SH", Close: &v}, {Ticker: "000001.SZ"}}
	require.NoError(t, s.Set("prices", "600519.SH_2024-01-01_2024-01-31", in))

	var out []entry
	ok, err := s.Get("prices", "600519.SH_2024-01-01_2024-01-31", time.Hour, &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, out)
}

func TestStoreMiss(t *testing.T) {
	s := openTestStore(t)

	var out []entry
	ok, err := s.Get("prices", "nope", time.Hour, &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreKindsAreSeparate(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("prices", "k", []entry{{Ticker: "a"}}))
	require.NoError(t, s.Set("metrics", "k", []entry{{Ticker: "b"}}))

	var out []entry
	ok, err := s.Get("metrics", "k", time.Hour, &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", out[0].Ticker)
}

func TestStoreOverwrite(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("prices", "k", []entry{{Ticker: "old"}}))
	require.NoError(t, s.Set("prices", "k", []entry{{Ticker: "new"}}))

	var out []entry
	ok, err := s.Get("prices", "k", time.Hour, &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "new", out[0].Ticker)
}

func TestStoreExpiry(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("prices", "k", []entry{{Ticker: "a"}}))
	time.Sleep(20 * time.Millisecond)

	var out []entry
	ok, err := s.Get("prices", "k", time.Millisecond, &out)
	require.NoError(t, err)
	require.False(t, ok)

	// maxAge <= 0 disables expiry.
	ok, err = s.Get("prices", "k", 0, &out)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStorePurge(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("prices", "k", []entry{{Ticker: "a"}}))
	// created_at has whole-second granularity; sleep past the next
	// boundary so the cutoff lands strictly after it.
	time.Sleep(1100 * time.Millisecond)
	require.NoError(t, s.Purge(time.Millisecond))

	var out []entry
	ok, err := s.Get("prices", "k", 0, &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreNilSafe(t *testing.T) {
	var s *Store
	require.NoError(t, s.Set("prices", "k", nil))
	ok, err := s.Get("prices", "k", time.Hour, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, s.Purge(time.Hour))
	require.NoError(t, s.Close())
}
