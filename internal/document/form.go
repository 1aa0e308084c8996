package document

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-billing/internal/catalog"
	"github.com/noah-isme/backend-billing/internal/pricing"
)

var (
	// ErrProductAlreadySelected is returned when a product is already used by another row.
	ErrProductAlreadySelected = errors.New("document: product already selected")
	// ErrRowNotFound is returned for an unknown row id.
	ErrRowNotFound = errors.New("document: row not found")
)

// Row is one line of a form with a stable identifier.
type Row struct {
	ID   uuid.UUID        `json:"id"`
	Item pricing.LineItem `json:"item"`
}

// Form is the state of a billing document being edited. Every operation
// returns a new Form and leaves the receiver untouched, so a Form value can
// be shared freely.
type Form struct {
	profile  Profile
	rows     []Row
	selected map[string]uuid.UUID
	roundOff bool
}

// New starts an empty form of kind.
func New(kind Kind) (Form, error) {
	p, err := ProfileFor(kind)
	if err != nil {
		return Form{}, err
	}
	return NewWithProfile(p), nil
}

// NewWithProfile starts an empty form with an explicit profile.
func NewWithProfile(p Profile) Form {
	return Form{profile: p}
}

// Kind returns the document kind.
func (f Form) Kind() Kind { return f.profile.Kind }

// Profile returns the pricing profile.
func (f Form) Profile() Profile { return f.profile }

// RoundOff reports whether the grand total is rounded.
func (f Form) RoundOff() bool { return f.roundOff }

// Rows returns a copy of the rows in display order.
func (f Form) Rows() []Row {
	out := make([]Row, len(f.rows))
	copy(out, f.rows)
	return out
}

// Items returns the line items in display order.
func (f Form) Items() []pricing.LineItem {
	out := make([]pricing.LineItem, len(f.rows))
	for i, r := range f.rows {
		out[i] = r.Item
	}
	return out
}

// Row looks a row up by id.
func (f Form) Row(id uuid.UUID) (Row, bool) {
	if i := f.index(id); i >= 0 {
		return f.rows[i], true
	}
	return Row{}, false
}

// IsSelected reports whether productID is used by any row.
func (f Form) IsSelected(productID string) bool {
	_, ok := f.selected[productID]
	return ok
}

// AddRow appends an empty row and returns its id.
func (f Form) AddRow() (Form, uuid.UUID) {
	next := f.clone()
	id := uuid.New()
	next.rows = append(next.rows, Row{ID: id})
	return next, id
}

// Edit prices change into the row. Product changes go through the same
// uniqueness check as SelectProduct.
func (f Form) Edit(rowID uuid.UUID, change pricing.Change) (Form, error) {
	i := f.index(rowID)
	if i < 0 {
		return f, fmt.Errorf("edit %s: %w", rowID, ErrRowNotFound)
	}
	next := f.clone()
	if change.Field == pricing.FieldProduct && change.Product != nil {
		if err := next.claim(rowID, next.rows[i].Item.ProductID, change.Product.ID); err != nil {
			return f, err
		}
	}
	next.rows[i].Item = pricing.PriceLine(next.rows[i].Item, change)
	return next, nil
}

// SelectProduct seeds the row from a catalog entry using the profile's price basis.
func (f Form) SelectProduct(rowID uuid.UUID, p catalog.Product) (Form, error) {
	return f.Edit(rowID, pricing.SelectProduct(p.PricingEntry(f.profile.Basis)))
}

// RemoveRow deletes the row and releases its product.
func (f Form) RemoveRow(rowID uuid.UUID) (Form, error) {
	i := f.index(rowID)
	if i < 0 {
		return f, fmt.Errorf("remove %s: %w", rowID, ErrRowNotFound)
	}
	next := f.clone()
	if pid := next.rows[i].Item.ProductID; pid != "" && next.selected[pid] == rowID {
		delete(next.selected, pid)
	}
	next.rows = append(next.rows[:i], next.rows[i+1:]...)
	return next, nil
}

// ClearProduct drops the row's product. The row goes with it.
func (f Form) ClearProduct(rowID uuid.UUID) (Form, error) {
	return f.RemoveRow(rowID)
}

// SetRoundOff toggles rounding of the grand total.
func (f Form) SetRoundOff(on bool) Form {
	next := f.clone()
	next.roundOff = on
	return next
}

// Totals aggregates every row.
func (f Form) Totals() pricing.Totals {
	return pricing.AggregateWith(f.Items(), pricing.Options{RoundOff: f.roundOff, Rounding: f.profile.Rounding})
}

func (f Form) claim(rowID uuid.UUID, previous, productID string) error {
	if productID != "" {
		if owner, ok := f.selected[productID]; ok && owner != rowID {
			return fmt.Errorf("select %q: %w", productID, ErrProductAlreadySelected)
		}
	}
	if previous != "" && previous != productID && f.selected[previous] == rowID {
		delete(f.selected, previous)
	}
	if productID != "" {
		f.selected[productID] = rowID
	}
	return nil
}

func (f Form) index(id uuid.UUID) int {
	for i, r := range f.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (f Form) clone() Form {
	next := f
	next.rows = make([]Row, len(f.rows), len(f.rows)+1)
	copy(next.rows, f.rows)
	next.selected = make(map[string]uuid.UUID, len(f.selected)+1)
	for k, v := range f.selected {
		next.selected[k] = v
	}
	return next
}
