package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode controls how the grand total is rounded when round-off is on.
type RoundingMode int

const (
	// RoundNearest rounds to the nearest whole unit, halves away from zero.
	RoundNearest RoundingMode = iota
	// RoundTruncate drops the fractional part.
	RoundTruncate
)

// ParseRoundingMode reads the configuration name of a rounding mode.
func ParseRoundingMode(name string) (RoundingMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "nearest", "round":
		return RoundNearest, nil
	case "truncate", "floor":
		return RoundTruncate, nil
	default:
		return RoundNearest, fmt.Errorf("pricing: unknown rounding mode %q", name)
	}
}

func (m RoundingMode) String() string {
	if m == RoundTruncate {
		return "truncate"
	}
	return "nearest"
}

func (m RoundingMode) apply(d decimal.Decimal) decimal.Decimal {
	if m == RoundTruncate {
		return d.Truncate(0)
	}
	return d.Round(0)
}

// Totals summarises a document.
type Totals struct {
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	VAT           decimal.Decimal `json:"vat"`
	TotalAmount   decimal.Decimal `json:"TotalAmount"`
	RoundOffValue decimal.Decimal `json:"roundOffValue"`
}

// Equal reports whether every field of t and o is equal.
func (t Totals) Equal(o Totals) bool {
	return t.Within(o, decimal.Zero)
}

// Within reports whether every field of t is within tolerance of o.
func (t Totals) Within(o Totals, tolerance decimal.Decimal) bool {
	pairs := [][2]decimal.Decimal{
		{t.TaxableAmount, o.TaxableAmount},
		{t.TotalDiscount, o.TotalDiscount},
		{t.VAT, o.VAT},
		{t.TotalAmount, o.TotalAmount},
		{t.RoundOffValue, o.RoundOffValue},
	}
	for _, p := range pairs {
		if p[0].Sub(p[1]).Abs().GreaterThan(tolerance) {
			return false
		}
	}
	return true
}

// Options tunes aggregation.
type Options struct {
	RoundOff bool
	Rounding RoundingMode
}

// Aggregate folds items into document totals using nearest rounding.
func Aggregate(items []LineItem, roundOff bool) Totals {
	return AggregateWith(items, Options{RoundOff: roundOff})
}

// AggregateWith folds items into document totals. Each line is re-evaluated
// from its inputs; cached amounts are ignored.
func AggregateWith(items []LineItem, opts Options) Totals {
	var t Totals
	for _, item := range items {
		b := Breakdown(item)
		t.TaxableAmount = t.TaxableAmount.Add(b.Base)
		t.TotalDiscount = t.TotalDiscount.Add(b.Discount)
		t.VAT = t.VAT.Add(b.Tax)
	}
	raw := t.TaxableAmount.Sub(t.TotalDiscount).Add(t.VAT)
	t.TotalAmount = raw
	if opts.RoundOff {
		t.TotalAmount = opts.Rounding.apply(raw)
		t.RoundOffValue = t.TotalAmount.Sub(raw)
	}
	return t
}
