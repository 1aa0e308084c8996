package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/backend-billing/internal/resilience"
)

// BreakerStore guards a Store with a circuit breaker. Lookups refused by an
// open breaker fail fast with ErrStoreUnavailable. ErrNotFound is a normal
// answer and never trips the breaker.
type BreakerStore struct {
	next    Store
	breaker *resilience.Breaker
}

// NewBreakerStore wraps next. cfg.IsFailure is replaced.
func NewBreakerStore(next Store, cfg resilience.BreakerConfig) *BreakerStore {
	cfg.IsFailure = func(err error) bool {
		return err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
	}
	return &BreakerStore{next: next, breaker: resilience.NewBreaker(cfg)}
}

// Get implements Store.
func (s *BreakerStore) Get(ctx context.Context, id string) (Product, error) {
	var p Product
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.next.Get(ctx, id)
		return err
	})
	return p, unavailable(err)
}

// Search implements Store.
func (s *BreakerStore) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	var items []Product
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.next.Search(ctx, query, limit)
		return err
	})
	return items, unavailable(err)
}

func unavailable(err error) error {
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
