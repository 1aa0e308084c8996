package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/catalog"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (catalog.Product, error) {
	return catalog.Product{}, errors.New("db down")
}

func (brokenStore) Search(context.Context, string, int) ([]catalog.Product, error) {
	return nil, catalog.ErrStoreUnavailable
}

func newRouter(store catalog.Store) http.Handler {
	h := catalog.NewHandler(catalog.HandlerConfig{Store: store, Logger: zerolog.Nop()})
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	return r
}

func TestCatalogHandlers(t *testing.T) {
	store := catalog.NewMemoryStore(
		catalog.Product{ID: "sku-1", Name: "Cement", Units: "bag", SellingPrice: decimal.NewFromInt(12)},
		catalog.Product{ID: "sku-2", Name: "Sand", Units: "kg", SellingPrice: decimal.NewFromInt(3)},
	)
	router := newRouter(store)

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/sku-1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data catalog.Product `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "Cement", body.Data.Name)
		require.True(t, body.Data.SellingPrice.Equal(decimal.NewFromInt(12)))
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"product not found"}}`, rec.Body.String())
	})

	t.Run("search", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?q=san&limit=5", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=abc", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCatalogHandlersStoreErrors(t *testing.T) {
	router := newRouter(brokenStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
