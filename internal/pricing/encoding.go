package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountEncoding maps discount types to the numeric codes a backend expects.
// Document modules historically disagreed on which code means percent.
type DiscountEncoding int

const (
	// FlatZero encodes flat as 0 and percent as 1.
	FlatZero DiscountEncoding = iota
	// PercentZero encodes percent as 0 and flat as 1.
	PercentZero
)

// ParseDiscountEncoding reads the configuration name of an encoding.
func ParseDiscountEncoding(name string) (DiscountEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "flat-zero":
		return FlatZero, nil
	case "percent-zero":
		return PercentZero, nil
	default:
		return FlatZero, fmt.Errorf("pricing: unknown discount encoding %q", name)
	}
}

func (e DiscountEncoding) String() string {
	if e == PercentZero {
		return "percent-zero"
	}
	return "flat-zero"
}

// Encode returns the wire code for t.
func (e DiscountEncoding) Encode(t DiscountType) int {
	if e == PercentZero {
		if t == Percent {
			return 0
		}
		return 1
	}
	return int(t)
}

// Decode reads a wire code or one of the textual aliases (flat, percent, F,
// P, %, amount). Unknown codes report ok=false and decode as Flat.
func (e DiscountEncoding) Decode(code string) (DiscountType, bool) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "0":
		if e == PercentZero {
			return Percent, true
		}
		return Flat, true
	case "1":
		if e == PercentZero {
			return Flat, true
		}
		return Percent, true
	case "flat", "f", "amount", "fixed":
		return Flat, true
	case "percent", "percentage", "p", "%":
		return Percent, true
	default:
		return Flat, false
	}
}

// DecodeJSON reads a discount type from JSON: a numeric code, a quoted code or
// alias, or null. Missing and null values decode as Flat.
func (e DiscountEncoding) DecodeJSON(data []byte) (DiscountType, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Flat, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Flat, err
	}
	var code string
	switch v := raw.(type) {
	case nil:
		return Flat, nil
	case float64:
		code = decimal.NewFromFloat(v).String()
	case string:
		code = v
	default:
		return Flat, fmt.Errorf("pricing: invalid discount type %s", string(data))
	}
	decoded, ok := e.Decode(code)
	if !ok {
		return Flat, fmt.Errorf("pricing: unknown discount type %q", code)
	}
	return decoded, nil
}
