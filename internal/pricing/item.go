package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountType selects how DiscountValue is interpreted.
type DiscountType int

const (
	// Flat discounts are an absolute amount taken off the line base.
	Flat DiscountType = 0
	// Percent discounts are a percentage of the line base.
	Percent DiscountType = 1
)

func (t DiscountType) String() string {
	if t == Percent {
		return "percent"
	}
	return "flat"
}

// UnmarshalJSON reads the FlatZero wire code or a textual alias. HTTP
// payloads whose encoding is configurable go through
// DiscountEncoding.DecodeJSON instead.
func (t *DiscountType) UnmarshalJSON(data []byte) error {
	decoded, err := FlatZero.DecodeJSON(data)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

// TaxInfo is the tax applied to a line after discount. Rate is a percentage.
type TaxInfo struct {
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"taxRate"`
}

func (t *TaxInfo) rate() decimal.Decimal {
	if t == nil {
		return decimal.Zero
	}
	return nonNegative(t.Rate)
}

func cloneTax(t *TaxInfo) *TaxInfo {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Edit names the field a user last touched on a line.
type Edit uint8

const (
	EditNone Edit = iota
	EditQuantity
	EditRate
	EditDiscount
	EditTax
	EditProduct
)

var editNames = [...]string{"none", "quantity", "rate", "discount", "tax", "product"}

func (e Edit) String() string {
	if int(e) < len(editNames) {
		return editNames[e]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (e Edit) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Edit) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	if name == "" {
		*e = EditNone
		return nil
	}
	for i, n := range editNames {
		if n == name {
			*e = Edit(i)
			return nil
		}
	}
	return fmt.Errorf("pricing: unknown edit %q", name)
}

// EditSet records which fields the user entered by hand.
type EditSet uint8

// With returns the set including e.
func (s EditSet) With(e Edit) EditSet {
	return s | 1<<e
}

// Has reports whether e is in the set.
func (s EditSet) Has(e Edit) bool {
	return s&(1<<e) != 0
}

// RateIntent is the snapshot taken when the user types a line rate directly.
// A later quantity change rebuilds the rate from LineRate scaled by the new
// quantity and restores the discount and tax in effect at the time of the edit.
type RateIntent struct {
	LineRate      decimal.Decimal `json:"lineRate"`
	// Quantity is the quantity LineRate was typed against, at least 1.
	Quantity      decimal.Decimal `json:"quantity"`
	DiscountValue Input           `json:"discountValue"`
	DiscountType  DiscountType    `json:"discountType"`
	Tax           *TaxInfo        `json:"taxInfo,omitempty"`
}

// RateFor returns the line rate for qty implied by the edit. The product is
// taken before the division so re-entering the original quantity gives the
// typed rate back exactly.
func (r RateIntent) RateFor(qty decimal.Decimal) decimal.Decimal {
	divisor := r.Quantity
	if divisor.LessThan(one) {
		divisor = one
	}
	if qty.Equal(divisor) {
		return r.LineRate
	}
	return r.LineRate.Mul(qty).Div(divisor)
}

// LineItem is one row of a billing document.
type LineItem struct {
	ProductID     string          `json:"productId"`
	Name          string          `json:"name"`
	Units         string          `json:"units"`
	Quantity      Input           `json:"quantity"`
	Rate          Input           `json:"rate"`
	DiscountValue Input           `json:"discountValue"`
	DiscountType  DiscountType    `json:"discountType"`
	Tax           *TaxInfo        `json:"taxInfo,omitempty"`
	Amount        decimal.Decimal `json:"amount"`

	// LastEdit is informational, echoed to clients. Behavior branches on
	// Manual and RateIntent.
	LastEdit   Edit        `json:"lastEdit"`
	// Manual holds the fields a product selection must not overwrite.
	Manual     EditSet     `json:"manual,omitempty"`
	RateIntent *RateIntent `json:"rateIntent,omitempty"`
}

func (item LineItem) clone() LineItem {
	c := item
	c.Tax = cloneTax(item.Tax)
	if item.RateIntent != nil {
		intent := *item.RateIntent
		intent.Tax = cloneTax(item.RateIntent.Tax)
		c.RateIntent = &intent
	}
	return c
}

// Product is the catalog data needed to seed a line. Price is already the
// price for the document's side (selling or purchase).
type Product struct {
	ID    string
	Name  string
	Units string
	Price decimal.Decimal
	Tax   *TaxInfo
}
