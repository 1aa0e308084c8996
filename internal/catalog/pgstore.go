package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/pricing"
)

// DBTX is the subset of pgxpool.Pool used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrStoreUnavailable indicates the database dependency is not configured.
var ErrStoreUnavailable = errors.New("catalog: store unavailable")

const productColumns = `id, name, units, purchase_price::text, selling_price::text, tax_name, tax_rate::text`

// PGStore reads products from Postgres.
type PGStore struct {
	db DBTX
}

// NewPGStore constructs a Store backed by a pgx pool or transaction.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

// Get implements Store.
func (s *PGStore) Get(ctx context.Context, id string) (Product, error) {
	if s == nil || s.db == nil {
		return Product{}, ErrStoreUnavailable
	}
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Product{}, fmt.Errorf("get %q: %w", id, err)
	}
	return p, nil
}

// Search implements Store. An empty query lists products by name.
func (s *PGStore) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreUnavailable
	}
	limit = clampLimit(limit)
	query = strings.TrimSpace(query)

	var (
		rows pgx.Rows
		err  error
	)
	if query == "" {
		rows, err = s.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id LIMIT $1`, limit)
	} else {
		rows, err = s.db.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE name ILIKE '%' || $1 || '%' OR id ILIKE '%' || $1 || '%'
ORDER BY name, id LIMIT $2`, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert writes p, replacing any product with the same id.
func (s *PGStore) Upsert(ctx context.Context, p Product) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	var taxName, taxRate any
	if p.Tax != nil {
		taxName = p.Tax.Name
		taxRate = p.Tax.Rate.String()
	}
	_, err := s.db.Exec(ctx, `INSERT INTO products (id, name, units, purchase_price, selling_price, tax_name, tax_rate)
VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7::numeric)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, units = EXCLUDED.units,
  purchase_price = EXCLUDED.purchase_price, selling_price = EXCLUDED.selling_price,
  tax_name = EXCLUDED.tax_name, tax_rate = EXCLUDED.tax_rate, updated_at = now()`,
		p.ID, p.Name, p.Units, p.PurchasePrice.String(), p.SellingPrice.String(), taxName, taxRate)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p                 Product
		purchase, selling string
		taxName, taxRate  *string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Units, &purchase, &selling, &taxName, &taxRate); err != nil {
		return Product{}, err
	}
	var err error
	if p.PurchasePrice, err = decimal.NewFromString(purchase); err != nil {
		return Product{}, fmt.Errorf("purchase price: %w", err)
	}
	if p.SellingPrice, err = decimal.NewFromString(selling); err != nil {
		return Product{}, fmt.Errorf("selling price: %w", err)
	}
	if taxRate != nil {
		rate, err := decimal.NewFromString(*taxRate)
		if err != nil {
			return Product{}, fmt.Errorf("tax rate: %w", err)
		}
		p.Tax = &pricing.TaxInfo{Rate: rate}
		if taxName != nil {
			p.Tax.Name = *taxName
		}
	}
	return p, nil
}
