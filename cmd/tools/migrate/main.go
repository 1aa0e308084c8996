package main

import (
	"errors"
	"flag"
	"os"

	migrate "github.com/golang-migrate/migrate/v4"

	"github.com/noah-isme/backend-billing/internal/config"
	"github.com/noah-isme/backend-billing/internal/db"
	"github.com/noah-isme/backend-billing/internal/obs"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := obs.NewLogger("console", "info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("init migrations")
	}
	defer m.Close()

	if *down {
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			err = nil
		}
	} else {
		err = db.Up(m)
	}
	if err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
}
