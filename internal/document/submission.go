package document

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/pricing"
)

var (
	// ErrTotalsMismatch is returned when submitted totals disagree with the items.
	ErrTotalsMismatch = errors.New("document: totals do not match items")
	// ErrInvalidSubmission is returned when a submission cannot be read.
	ErrInvalidSubmission = errors.New("document: invalid submission")
)

// SubmissionItem is the flattened wire form of a line.
type SubmissionItem struct {
	ProductID     string          `json:"productId" validate:"required"`
	Name          string          `json:"name"`
	Units         string          `json:"units"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gte=1"`
	Rate          decimal.Decimal `json:"rate" validate:"gt=0"`
	DiscountValue decimal.Decimal `json:"discountValue" validate:"gte=0"`
	DiscountType  int             `json:"discountType"`
	TaxName       string          `json:"taxName,omitempty"`
	TaxRate       decimal.Decimal `json:"taxRate" validate:"gte=0"`
	Amount        decimal.Decimal `json:"amount"`
}

// Submission is the payload handed to the backend: the items plus the totals
// computed from them, which must reconcile exactly.
type Submission struct {
	Kind     Kind             `json:"kind"`
	Items    []SubmissionItem `json:"items" validate:"required,min=1,dive"`
	RoundOff bool             `json:"roundOff"`
	pricing.Totals
}

// Submission builds the payload for the current form state.
func (f Form) Submission(enc pricing.DiscountEncoding) Submission {
	items := f.Items()
	sub := Submission{
		Kind:     f.profile.Kind,
		Items:    make([]SubmissionItem, len(items)),
		RoundOff: f.roundOff,
		Totals:   f.Totals(),
	}
	for i, item := range items {
		sub.Items[i] = flatten(item, enc)
	}
	return sub
}

func flatten(item pricing.LineItem, enc pricing.DiscountEncoding) SubmissionItem {
	out := SubmissionItem{
		ProductID:     item.ProductID,
		Name:          item.Name,
		Units:         item.Units,
		Quantity:      item.Quantity.Decimal(),
		Rate:          item.Rate.Decimal(),
		DiscountValue: item.DiscountValue.Decimal(),
		DiscountType:  enc.Encode(item.DiscountType),
		Amount:        pricing.Breakdown(item).Amount,
	}
	if item.Tax != nil {
		out.TaxName = item.Tax.Name
		out.TaxRate = item.Tax.Rate
	}
	return out
}

// LineItem rebuilds the engine view of a submitted line.
func (s SubmissionItem) LineItem(enc pricing.DiscountEncoding) (pricing.LineItem, error) {
	dt, ok := enc.Decode(strconv.Itoa(s.DiscountType))
	if !ok {
		return pricing.LineItem{}, fmt.Errorf("%w: discount type %d", ErrInvalidSubmission, s.DiscountType)
	}
	item := pricing.LineItem{
		ProductID:     s.ProductID,
		Name:          s.Name,
		Units:         s.Units,
		Quantity:      pricing.Number(s.Quantity),
		Rate:          pricing.Number(s.Rate),
		DiscountValue: pricing.Number(s.DiscountValue),
		DiscountType:  dt,
	}
	if s.TaxName != "" || !s.TaxRate.IsZero() {
		item.Tax = &pricing.TaxInfo{Name: s.TaxName, Rate: s.TaxRate}
	}
	return pricing.Reprice(item), nil
}

// VerifyOptions controls reconciliation.
type VerifyOptions struct {
	Encoding pricing.DiscountEncoding
	Rounding pricing.RoundingMode
	// Tolerance is the largest accepted difference per total. Zero means exact.
	Tolerance decimal.Decimal
}

// MismatchError carries both sides of a failed reconciliation.
type MismatchError struct {
	Submitted pricing.Totals `json:"submitted"`
	Computed  pricing.Totals `json:"computed"`
	// Lines holds the indexes of items whose submitted amount is off.
	Lines []int `json:"lines,omitempty"`
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("document: totals do not match items: submitted %s, computed %s",
		e.Submitted.TotalAmount, e.Computed.TotalAmount)
}

func (e *MismatchError) Unwrap() error { return ErrTotalsMismatch }

// Verify recomputes totals from the submitted items and compares them with
// the submitted totals. On mismatch the returned error is a *MismatchError.
func Verify(sub Submission, opts VerifyOptions) (pricing.Totals, error) {
	items := make([]pricing.LineItem, len(sub.Items))
	var lines []int
	for i, si := range sub.Items {
		item, err := si.LineItem(opts.Encoding)
		if err != nil {
			return pricing.Totals{}, fmt.Errorf("item %d: %w", i, err)
		}
		if item.Amount.Sub(si.Amount).Abs().GreaterThan(opts.Tolerance) {
			lines = append(lines, i)
		}
		items[i] = item
	}
	computed := pricing.AggregateWith(items, pricing.Options{RoundOff: sub.RoundOff, Rounding: opts.Rounding})
	if !sub.Totals.Within(computed, opts.Tolerance) || len(lines) > 0 {
		return computed, &MismatchError{Submitted: sub.Totals, Computed: computed, Lines: lines}
	}
	return computed, nil
}
