package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/medmeet/medmeet/internal/config"
	"github.com/medmeet/medmeet/internal/platform/events"
	"github.com/medmeet/medmeet/internal/platform/lock"
)

// ---------------------------------------------------------------------------
// newServer wiring
// ---------------------------------------------------------------------------

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		LogLevel:       "info",
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		RequestTimeout: 5 * time.Second,
		BodyLimit:      "1M",
	}
}

func newTestServer(t *testing.T, pinger fakePinger) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	e := newServer(testConfig(), zerolog.Nop(), mock, serverDeps{
		pinger:    pinger,
		locker:    lock.NewLocal(),
		publisher: events.Nop{},
		registry:  prometheus.NewRegistry(),
	})
	return e, mock
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	h, _ := newTestServer(t, fakePinger{})
	rec := get(h, "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected /health response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestServer_HealthDB(t *testing.T) {
	h, _ := newTestServer(t, fakePinger{err: errors.New("connection refused")})
	rec := get(h, "/health/db")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestServer_MetricsExposesRequestCounters(t *testing.T) {
	h, _ := newTestServer(t, fakePinger{})
	_ = get(h, "/health")

	rec := get(h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `medmeet_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("expected request counter in exposition, got:\n%s", body)
	}
}

func TestServer_APIRoutesAreMounted(t *testing.T) {
	h, mock := newTestServer(t, fakePinger{})

	for _, path := range []string{
		"/api/v1/providers/not-a-uuid",
		"/api/v1/patients/not-a-uuid",
		"/api/v1/bookings/not-a-uuid",
		"/api/v1/providers/not-a-uuid/agenda?date=2024-08-26",
	} {
		if rec := get(h, path); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM provider`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))
	rec := get(h, "/api/v1/providers/count")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"count":7}` {
		t.Errorf("unexpected count response %d %s", rec.Code, rec.Body.String())
	}
}
