package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-billing/internal/catalog"
	"github.com/noah-isme/backend-billing/internal/config"
	"github.com/noah-isme/backend-billing/internal/obs"
)

type upserter interface {
	Upsert(ctx context.Context, p catalog.Product) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := obs.NewLogger("console", "info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	var rdb redis.UniversalClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()
		rdb = client
	}

	store := catalog.NewPGStore(pool)
	cached := catalog.NewCachedStore(store, catalog.NewCache(rdb, cfg.CatalogCacheTTL), log)
	n, err := seed(ctx, store, cached, catalog.DemoProducts(), log)
	if err != nil {
		os.Exit(1)
	}
	log.Info().Int("count", n).Msg("seeding completed")
}

// seed upserts products and drops their cached copies so the API serves the
// new prices immediately. A cache failure is logged and does not stop seeding.
func seed(ctx context.Context, store upserter, cache *catalog.CachedStore, products []catalog.Product, log zerolog.Logger) (int, error) {
	for i, p := range products {
		if err := store.Upsert(ctx, p); err != nil {
			log.Error().Err(err).Str("product_id", p.ID).Msg("seed product")
			return i, err
		}
		if err := cache.Invalidate(ctx, p.ID); err != nil {
			log.Warn().Err(err).Str("product_id", p.ID).Msg("invalidate cached product")
		}
		log.Info().Str("product_id", p.ID).Str("name", p.Name).Msg("seeded product")
	}
	return len(products), nil
}
