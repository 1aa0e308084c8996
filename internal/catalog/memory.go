package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewMemoryStore seeds a store with products.
func NewMemoryStore(products ...Product) *MemoryStore {
	s := &MemoryStore{products: make(map[string]Product, len(products))}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

// Put inserts or replaces a product.
func (s *MemoryStore) Put(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// Search implements Store with a case-insensitive match on id and name.
func (s *MemoryStore) Search(_ context.Context, query string, limit int) ([]Product, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	s.mu.RLock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.ID), q) {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
