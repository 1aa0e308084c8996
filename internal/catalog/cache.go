package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewCache constructs a cache helper. A nil client yields a no-op cache.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, prefix: "catalog:"}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}

// Delete drops keys from the cache.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.client.Del(ctx, full...).Err()
}

// DeletePrefix drops every key starting with prefix.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	if !c.enabled() {
		return nil
	}
	iter := c.client.Scan(ctx, 0, c.prefix+prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// CachedStore serves Get and Search from Cache before falling back to the
// wrapped Store. Cache failures are logged and never fail the lookup.
type CachedStore struct {
	next  Store
	cache *Cache
	log   zerolog.Logger
	// OnLookup, when set, is told whether each lookup was a cache hit.
	OnLookup func(op string, hit bool)
}

// NewCachedStore decorates next with cache.
func NewCachedStore(next Store, cache *Cache, log zerolog.Logger) *CachedStore {
	return &CachedStore{next: next, cache: cache, log: log}
}

// Get implements Store.
func (s *CachedStore) Get(ctx context.Context, id string) (Product, error) {
	key := productKey(id)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("catalog cache read failed")
	} else if ok {
		s.observe("get", true)
		return cached, nil
	}
	s.observe("get", false)

	p, err := s.next.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := s.cache.SetJSON(ctx, key, p); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return p, nil
}

// Search implements Store.
func (s *CachedStore) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	limit = clampLimit(limit)
	key := searchKey(query, limit)
	var cached []Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("catalog cache read failed")
	} else if ok {
		s.observe("search", true)
		return cached, nil
	}
	s.observe("search", false)

	items, err := s.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, items); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return items, nil
}

// Invalidate drops the cached entry for a product id and every cached search,
// since any of them may list the product at its old price.
func (s *CachedStore) Invalidate(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, productKey(id)); err != nil {
		return err
	}
	return s.cache.DeletePrefix(ctx, searchPrefix)
}

func (s *CachedStore) observe(op string, hit bool) {
	if s.OnLookup != nil && s.cache.enabled() {
		s.OnLookup(op, hit)
	}
}

func productKey(id string) string {
	return "product:" + id
}

const searchPrefix = "search:"

func searchKey(query string, limit int) string {
	return searchPrefix + strconv.Itoa(limit) + ":" + strings.ToLower(strings.TrimSpace(query))
}
