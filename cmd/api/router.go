package main

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-billing/internal/catalog"
	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/config"
	"github.com/noah-isme/backend-billing/internal/health"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/quote"
	"github.com/noah-isme/backend-billing/internal/ratelimit"
	"github.com/noah-isme/backend-billing/internal/security"
)

// app carries the dependencies the router is built from. Redis and the
// database pinger are optional.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    catalog.Store
	redis    redis.UniversalClient
	dbPinger health.Pinger
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
	tracing  bool
}

func newRouter(a app) http.Handler {
	cfg := a.cfg

	var (
		httpMetrics    *obs.HTTPMetrics
		pricingMetrics *obs.PricingMetrics
	)
	if cfg.Obs.MetricsEnabled {
		buckets := obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets)
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, buckets, a.registry)
		pricingMetrics = obs.NewPricingMetrics(cfg.Obs.MetricsNamespace, a.registry)
	}

	store := a.store
	if a.redis != nil {
		cached := catalog.NewCachedStore(store, catalog.NewCache(a.redis, cfg.CatalogCacheTTL), a.logger)
		cached.OnLookup = pricingMetrics.CacheLookup
		store = cached
	}

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Store: store, Logger: a.logger})

	var verifyMW []func(http.Handler) http.Handler
	if a.redis != nil {
		verifyMW = append(verifyMW, common.Idem{R: a.redis, TTL: cfg.IdempotencyTTL}.Middleware)
	}
	quoteHandler := quote.NewHandler(quote.Config{
		Store:            store,
		Metrics:          pricingMetrics,
		Logger:           a.logger,
		Rounding:         cfg.Pricing.Rounding,
		Encoding:         cfg.Pricing.DiscountEncoding,
		Tolerance:        cfg.Pricing.VerifyTolerance,
		VerifyMiddleware: verifyMW,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if a.tracing {
		r.Use(obs.TraceRoute)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: a.logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"X-Total-Count", "Idempotent-Replayed", "Retry-After"},
		MaxAge:         300,
	}))

	if cfg.Obs.MetricsEnabled && a.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.Obs.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}

	probes := map[string]health.Probe{"db": nil, "redis": nil}
	if a.dbPinger != nil {
		probes["db"] = health.PingDB(a.dbPinger)
	}
	if a.redis != nil {
		probes["redis"] = health.PingRedis(a.redis)
	}
	healthHandler := health.Handler{Probes: probes, Timeout: cfg.Obs.ReadyTimeout}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	limiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: a.redis, Prefix: "ratelimit:"},
		Config:  ratelimit.Config{Key: ratelimit.ByClientIP("api"), Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { a.logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	if a.redis == nil {
		limiter.Config.Max = 0
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limiter.Middleware)
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		catalogHandler.Routes(v)
		quoteHandler.Routes(v)
	})

	if !a.tracing {
		return r
	}
	return otelhttp.NewHandler(r, serviceName)
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
