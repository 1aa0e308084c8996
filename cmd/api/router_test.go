package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/catalog"
	"github.com/noah-isme/backend-billing/internal/config"
)

func testApp(t *testing.T, values map[string]string, withRedis bool) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	cfg, err := config.LoadForTests(values)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	a := app{
		cfg:      cfg,
		logger:   zerolog.Nop(),
		store:    catalog.NewMemoryStore(catalog.DemoProducts()...),
		registry: reg,
		gatherer: reg,
	}
	var mr *miniredis.Miniredis
	if withRedis {
		mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		a.redis = client
	}
	return newRouter(a), mr
}

func do(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterServesCatalogAndPricing(t *testing.T) {
	h, mr := testApp(t, nil, true)

	rec := do(h, http.MethodGet, "/api/v1/products/sku-cement", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.True(t, mr.Exists("catalog:product:sku-cement"))

	rec = do(h, http.MethodPost, "/api/v1/pricing/line",
		`{"item":{"quantity":2},"change":{"field":"product","productId":"sku-cement"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"name":"Portland Cement 50kg"`)

	rec = do(h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `billing_catalog_cache_lookups_total{operation="get",result="hit"} 1`)
	require.Contains(t, rec.Body.String(), `billing_pricing_operations_total{operation="line",result="ok"} 1`)
}

func TestRouterHealth(t *testing.T) {
	h, _ := testApp(t, nil, true)

	rec := do(h, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"status":"ok","checks":{"db":"disabled","redis":"ok"}}`, rec.Body.String())
}

func TestRouterRateLimitsAPI(t *testing.T) {
	h, _ := testApp(t, map[string]string{"RATE_LIMIT_MAX": "2"}, true)

	for i := 0; i < 2; i++ {
		rec := do(h, http.MethodGet, "/api/v1/products", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(h, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(h, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterWithoutRedis(t *testing.T) {
	h, _ := testApp(t, map[string]string{"RATE_LIMIT_MAX": "1", "BODY_LIMIT_BYTES": "64"}, false)

	for i := 0; i < 3; i++ {
		rec := do(h, http.MethodGet, "/api/v1/products?q=sand", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	}

	big := `{"items":[],"roundOff":false,"padding":"` + strings.Repeat("x", 128) + `"}`
	rec := do(h, http.MethodPost, "/api/v1/pricing/totals", big, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestProtectPprof(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := protectPprof(inner, "ops", "secret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("ops", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
