package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/health"
)

type readyBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func ready(t *testing.T, h health.Handler) (int, readyBody) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var body readyBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReadyOptionalDependencies(t *testing.T) {
	code, body := ready(t, health.Handler{Probes: map[string]health.Probe{"db": nil, "redis": nil}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "disabled", body.Checks["db"])
}

func TestReadyFailure(t *testing.T) {
	h := health.Handler{Probes: map[string]health.Probe{
		"db":    func(context.Context) error { return errors.New("db down") },
		"redis": func(context.Context) error { return nil },
	}}
	code, body := ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "degraded", body.Status)
	require.Equal(t, "db down", body.Checks["db"])
	require.Equal(t, "ok", body.Checks["redis"])
}

func TestReadyWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	h := health.Handler{Probes: map[string]health.Probe{"redis": health.PingRedis(client)}}
	code, _ := ready(t, h)
	require.Equal(t, http.StatusOK, code)

	mr.Close()
	code, _ = ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReadinessAfterShutdown(t *testing.T) {
	h := health.Handler{}
	health.SetReady(false)
	t.Cleanup(func() { health.SetReady(true) })

	code, body := ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "shutting_down", body.Status)
}
