package fields

import (
	"strconv"
	"strings"
)

// Table is one rectangular vendor response. Column names are untrusted
// vendor strings that drift across report vintages; rows hold raw cell
// values keyed by column name. A Table only lives for the duration of
// one adapter call.
type Table struct {
	Columns []string
	Rows    []map[string]any
}

func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Lookup resolves the actual column name for the first matching
// candidate, see Resolve.
func (t Table) Lookup(candidates ...string) (string, bool) {
	return Resolve(t.Columns, candidates...)
}

// FloatCell resolves a column among candidates and converts the cell in
// the given row. Returns nil when the column cannot be resolved or the
// cell holds no usable number.
func (t Table) FloatCell(row int, candidates ...string) *float64 {
	if row < 0 || row >= len(t.Rows) {
		return nil
	}
	col, ok := t.Lookup(candidates...)
	if !ok {
		return nil
	}
	return Float(t.Rows[row][col])
}

// StringCell resolves a column among candidates and returns the cell in
// the given row as a trimmed string, "" when unresolved or empty.
func (t Table) StringCell(row int, candidates ...string) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	col, ok := t.Lookup(candidates...)
	if !ok {
		return ""
	}
	return String(t.Rows[row][col])
}

// Normalize strips every rune that is not an ASCII letter or digit and
// upper-cases the rest. A name with no ASCII letters or digits (for
// example a purely Chinese label) normalizes to the empty string, which
// never matches anything.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve matches a requested field against the actual columns of a
// vendor table. Candidates are tried in priority order: first an exact
// pass over all candidates, then a normalized pass. Within the
// normalized pass the first column in column order wins, which makes
// ties stable and deterministic. Returns ("", false) when nothing
// matches; callers decide whether that is fatal or just an absent
// field.
func Resolve(columns []string, candidates ...string) (string, bool) {
	for _, cand := range candidates {
		if cand == "" {
			continue
		}
		for _, col := range columns {
			if col == cand {
				return col, true
			}
		}
	}
	for _, cand := range candidates {
		norm := Normalize(cand)
		if norm == "" {
			continue
		}
		for _, col := range columns {
			if Normalize(col) == norm {
				return col, true
			}
		}
	}
	return "", false
}

// Float converts a raw vendor cell to a number. Vendors mark missing
// values with "--", "-" or an empty string; those, nil and anything
// unparseable yield nil so that absent never collapses to zero.
func Float(v any) *float64 {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return &x
	case float32:
		f := float64(x)
		return &f
	case int:
		f := float64(x)
		return &f
	case int64:
		f := float64(x)
		return &f
	case string:
		s := strings.TrimSpace(x)
		if s == "" || s == "--" || s == "-" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// Int converts a raw vendor cell to an integer, rounding fractional
// values the way exchange volumes are reported.
func Int(v any) (int64, bool) {
	f := Float(v)
	if f == nil {
		return 0, false
	}
	if *f >= 0 {
		return int64(*f + 0.5), true
	}
	return int64(*f - 0.5), true
}

// String returns the cell as a trimmed string, "" for nil.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}
