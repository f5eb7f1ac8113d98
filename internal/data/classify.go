package data

import "strings"

// Market is the routing group a ticker belongs to.
type Market string

const (
	MarketChina  Market = "cn"
	MarketGlobal Market = "global"
)

// chinaSuffixes are the exchange codes recognized as mainland Chinese
// listings: Shanghai and Shenzhen.
var chinaSuffixes = map[string]struct{}{
	"SH": {},
	"SZ": {},
}

// Classify decides a ticker's market from its textual form alone.
// A ticker is Chinese iff it contains exactly one dot splitting it into
// code and suffix and the suffix is a known mainland exchange code.
// Everything else, including multi-dot and unknown-suffix shapes, is
// the global market. Total: never fails.
func Classify(ticker string) Market {
	if strings.Count(ticker, ".") != 1 {
		return MarketGlobal
	}
	suffix := ticker[strings.IndexByte(ticker, '.')+1:]
	if _, ok := chinaSuffixes[suffix]; ok {
		return MarketChina
	}
	return MarketGlobal
}

// IsChinaTicker reports whether the ticker routes to a Chinese vendor.
func IsChinaTicker(ticker string) bool {
	return Classify(ticker) == MarketChina
}

// tickerCode returns the bare exchange code of a Chinese ticker,
// e.g. "600519" for "600519.SH".
func tickerCode(ticker string) string {
	if i := strings.IndexByte(ticker, '.'); i >= 0 {
		return ticker[:i]
	}
	return ticker
}

// tickerSuffix returns the exchange suffix, "" when there is none.
func tickerSuffix(ticker string) string {
	if i := strings.IndexByte(ticker, '.'); i >= 0 {
		return ticker[i+1:]
	}
	return ""
}
