package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/pricing"
)

// ErrNotFound is returned when a product id is unknown.
var ErrNotFound = errors.New("catalog: product not found")

// PriceBasis selects which list price seeds a line.
type PriceBasis string

const (
	BasisSelling  PriceBasis = "selling"
	BasisPurchase PriceBasis = "purchase"
)

// ParsePriceBasis reads a basis name.
func ParsePriceBasis(name string) (PriceBasis, error) {
	switch PriceBasis(strings.ToLower(strings.TrimSpace(name))) {
	case "", BasisSelling:
		return BasisSelling, nil
	case BasisPurchase:
		return BasisPurchase, nil
	default:
		return BasisSelling, fmt.Errorf("catalog: unknown price basis %q", name)
	}
}

// Product is a catalog entry.
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Units         string           `json:"units"`
	PurchasePrice decimal.Decimal  `json:"purchasePrice"`
	SellingPrice  decimal.Decimal  `json:"sellingPrice"`
	Tax           *pricing.TaxInfo `json:"taxInfo,omitempty"`
}

// Price returns the list price for basis.
func (p Product) Price(basis PriceBasis) decimal.Decimal {
	if basis == BasisPurchase {
		return p.PurchasePrice
	}
	return p.SellingPrice
}

// PricingEntry converts p into the seed consumed by the line pricer.
func (p Product) PricingEntry(basis PriceBasis) pricing.Product {
	var tax *pricing.TaxInfo
	if p.Tax != nil {
		t := *p.Tax
		tax = &t
	}
	return pricing.Product{
		ID:    p.ID,
		Name:  p.Name,
		Units: p.Units,
		Price: p.Price(basis),
		Tax:   tax,
	}
}

// Store looks products up.
type Store interface {
	Get(ctx context.Context, id string) (Product, error)
	Search(ctx context.Context, query string, limit int) ([]Product, error)
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultSearchLimit
	case limit > maxSearchLimit:
		return maxSearchLimit
	default:
		return limit
	}
}
