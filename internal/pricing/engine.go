package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Field identifies the line field a change targets.
type Field uint8

const (
	FieldQuantity Field = iota + 1
	FieldRate
	FieldDiscountValue
	FieldDiscountType
	FieldTax
	FieldProduct
)

var fieldNames = map[Field]string{
	FieldQuantity:      "quantity",
	FieldRate:          "rate",
	FieldDiscountValue: "discountValue",
	FieldDiscountType:  "discountType",
	FieldTax:           "tax",
	FieldProduct:       "product",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Field) UnmarshalText(text []byte) error {
	name := strings.TrimSpace(string(text))
	for field, n := range fieldNames {
		if strings.EqualFold(n, name) {
			*f = field
			return nil
		}
	}
	if strings.EqualFold(name, "discount") {
		*f = FieldDiscountValue
		return nil
	}
	return fmt.Errorf("pricing: unknown field %q", name)
}

// Change is a single user edit on a line.
type Change struct {
	Field        Field
	Value        string
	DiscountType DiscountType
	Tax          *TaxInfo
	Product      *Product
}

// SetQuantity builds a quantity change from raw text.
func SetQuantity(raw string) Change { return Change{Field: FieldQuantity, Value: raw} }

// SetRate builds a line-rate change from raw text.
func SetRate(raw string) Change { return Change{Field: FieldRate, Value: raw} }

// SetDiscount builds a discount value change from raw text.
func SetDiscount(raw string) Change { return Change{Field: FieldDiscountValue, Value: raw} }

// SetDiscountType builds a discount type change.
func SetDiscountType(t DiscountType) Change { return Change{Field: FieldDiscountType, DiscountType: t} }

// SetTax builds a tax change. A nil tax means 0%.
func SetTax(tax *TaxInfo) Change { return Change{Field: FieldTax, Tax: tax} }

// SelectProduct builds a product selection change.
func SelectProduct(p Product) Change { return Change{Field: FieldProduct, Product: &p} }

// LineBreakdown holds the intermediate values of the amount formula.
type LineBreakdown struct {
	Base       decimal.Decimal `json:"base"`
	Discount   decimal.Decimal `json:"discount"`
	Discounted decimal.Decimal `json:"discounted"`
	Tax        decimal.Decimal `json:"tax"`
	Amount     decimal.Decimal `json:"amount"`
}

// Breakdown evaluates the amount formula for item. It reads only the input
// fields, never the cached Amount. Every value is clamped to >= 0 and the
// discount never exceeds the base.
func Breakdown(item LineItem) LineBreakdown {
	qty := quantityOf(item.Quantity)
	rate := nonNegative(item.Rate.Decimal())
	base := qty.Mul(rate)

	value := nonNegative(item.DiscountValue.Decimal())
	discount := value
	if item.DiscountType == Percent {
		discount = base.Mul(value).Div(hundred)
	}
	if discount.GreaterThan(base) {
		discount = base
	}
	discounted := base.Sub(discount)
	tax := discounted.Mul(item.Tax.rate()).Div(hundred)

	return LineBreakdown{
		Base:       base,
		Discount:   discount,
		Discounted: discounted,
		Tax:        tax,
		Amount:     discounted.Add(tax),
	}
}

// PriceLine applies change to item and returns the updated copy with Amount
// recomputed. The input item is not modified.
func PriceLine(item LineItem, change Change) LineItem {
	next := item.clone()

	switch change.Field {
	case FieldProduct:
		if change.Product != nil {
			seedProduct(&next, *change.Product)
		}
		applyQuantity(&next, next.Quantity)
		next.LastEdit = EditProduct
	case FieldQuantity:
		applyQuantity(&next, ParseInput(change.Value))
		next.LastEdit = EditQuantity
	case FieldRate:
		next.Rate = ParseInput(change.Value)
		divisor := quantityOf(next.Quantity)
		if divisor.LessThan(one) {
			divisor = one
		}
		next.RateIntent = &RateIntent{
			LineRate:      nonNegative(next.Rate.Decimal()),
			Quantity:      divisor,
			DiscountValue: next.DiscountValue,
			DiscountType:  next.DiscountType,
			Tax:           cloneTax(next.Tax),
		}
		next.LastEdit = EditRate
		next.Manual = next.Manual.With(EditRate)
	case FieldDiscountValue:
		next.DiscountValue = ParseInput(change.Value)
		next.LastEdit = EditDiscount
	case FieldDiscountType:
		next.DiscountType = change.DiscountType
		next.LastEdit = EditDiscount
	case FieldTax:
		next.Tax = cloneTax(change.Tax)
		next.LastEdit = EditTax
		next.Manual = next.Manual.With(EditTax)
	}

	next.Amount = Breakdown(next).Amount
	return next
}

// Reprice recomputes Amount without applying any edit.
func Reprice(item LineItem) LineItem {
	next := item.clone()
	next.Amount = Breakdown(next).Amount
	return next
}

func seedProduct(item *LineItem, p Product) {
	item.ProductID = p.ID
	item.Name = p.Name
	item.Units = p.Units
	if !item.Manual.Has(EditRate) {
		item.Rate = Number(nonNegative(p.Price))
	}
	if !item.Manual.Has(EditTax) {
		item.Tax = cloneTax(p.Tax)
	}
}

// applyQuantity stores the clamped quantity and, when the user previously
// typed a rate, replays that intent against the new quantity. Text that does
// not parse yet leaves the other fields alone.
func applyQuantity(item *LineItem, in Input) {
	if !in.Valid {
		item.Quantity = in
		return
	}
	item.Quantity = Number(nonNegative(in.Value).Floor())

	intent := item.RateIntent
	if intent == nil {
		return
	}
	item.Rate = Number(intent.RateFor(quantityOf(item.Quantity)))
	item.DiscountValue = intent.DiscountValue
	item.DiscountType = intent.DiscountType
	item.Tax = cloneTax(intent.Tax)
}

func quantityOf(in Input) decimal.Decimal {
	return nonNegative(in.Decimal()).Floor()
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
