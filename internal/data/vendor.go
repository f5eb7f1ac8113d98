package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"stock-data-gateway/internal/fields"
)

// Shared plumbing for the vendor HTTP clients.

// getJSON issues a GET and decodes the body, retrying transient
// failures a couple of times the way the quote endpoints tend to need.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := client.Do(req)
		if err != nil {
			if shouldRetry(err) && attempt < 2 {
				lastErr = err
				time.Sleep(150 * time.Millisecond)
				continue
			}
			return fmt.Errorf("request %s: %w", req.URL.Host, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if shouldRetry(err) && attempt < 2 {
				lastErr = err
				time.Sleep(150 * time.Millisecond)
				continue
			}
			return fmt.Errorf("read %s: %w", req.URL.Host, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s returned status %d", req.URL.Host, resp.StatusCode)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s: %w", req.URL.Host, err)
		}
		return nil
	}
	return fmt.Errorf("request %s: %w", req.URL.Host, lastErr)
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "reset by peer") {
		return true
	}
	return false
}

// formatDate converts YYYY-MM-DD to the YYYYMMDD form the Chinese
// vendors take.
func formatDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// formatDateBack converts YYYYMMDD back to YYYY-MM-DD. Anything that
// is not eight digits is returned untouched.
func formatDateBack(date string) string {
	if len(date) != 8 {
		return date
	}
	return date[:4] + "-" + date[4:6] + "-" + date[6:]
}

// tableFromRecords builds a Table out of a list of JSON objects. Column
// order is the sorted key set of the first record, so resolver
// tie-breaks stay deterministic run to run.
func tableFromRecords(records []map[string]any) fields.Table {
	if len(records) == 0 {
		return fields.Table{}
	}
	cols := make([]string, 0, len(records[0]))
	for k := range records[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return fields.Table{Columns: cols, Rows: records}
}

// searchStatements answers a line-item search over statement tables in
// precedence order (income, balance, cash flow). Every requested item
// gets a slot; an item resolvable in no table stays nil rather than
// being dropped.
func searchStatements(ticker string, items []string, endDate, period, currency string, tables []fields.Table, aliases map[string][]string) LineItem {
	out := LineItem{
		Ticker:       ticker,
		ReportPeriod: endDate,
		Period:       period,
		Currency:     currency,
		Items:        make(map[string]*float64, len(items)),
	}
	for _, item := range items {
		candidates := append([]string{item}, aliases[item]...)
		var found *float64
		for _, t := range tables {
			if t.Empty() {
				continue
			}
			if v := t.FloatCell(0, candidates...); v != nil {
				found = v
				break
			}
		}
		out.Items[item] = found
	}
	return out
}

// pricesToSeries is the common columnar rendering; withAmount adds the
// traded-amount column the Chinese vendors report.
func pricesToSeries(prices []Price, withAmount bool) PriceSeries {
	s := PriceSeries{
		Dates:  make([]string, 0, len(prices)),
		Open:   make([]float64, 0, len(prices)),
		Close:  make([]float64, 0, len(prices)),
		High:   make([]float64, 0, len(prices)),
		Low:    make([]float64, 0, len(prices)),
		Volume: make([]int64, 0, len(prices)),
	}
	if withAmount {
		s.Amount = make([]float64, 0, len(prices))
	}
	for _, p := range prices {
		s.Dates = append(s.Dates, p.Time)
		s.Open = append(s.Open, p.Open)
		s.Close = append(s.Close, p.Close)
		s.High = append(s.High, p.High)
		s.Low = append(s.Low, p.Low)
		s.Volume = append(s.Volume, p.Volume)
		if withAmount {
			amt := 0.0
			if p.Amount != nil {
				amt = *p.Amount
			}
			s.Amount = append(s.Amount, amt)
		}
	}
	return s
}
