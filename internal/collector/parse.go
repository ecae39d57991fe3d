package collector

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumeric coerces a decoded JSON value into a finite float. Numeric
// strings may use a comma decimal separator with dot grouping (1.234,56).
// Anything else reports ok=false.
func ParseNumeric(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		return parseNumericString(v.String())
	case string:
		return parseNumericString(v)
	default:
		return 0, false
	}
}

// ParseOptional is ParseNumeric returning nil for absent values.
func ParseOptional(raw any) *float64 {
	v, ok := ParseNumeric(raw)
	if !ok {
		return nil
	}
	return &v
}

func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan") {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return finite(d.InexactFloat64())
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
