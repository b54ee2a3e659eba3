package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_CountsRequests(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/labs", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/labs", "200"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/labs", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/labs", "200"))
	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestMiddleware_ErrorStatus(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad")
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/boom", "400"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/boom", "400"))
	if after != before+1 {
		t.Errorf("expected 400 counter to increment, got %v -> %v", before, after)
	}
}

func TestEventCounters(t *testing.T) {
	before := testutil.ToFloat64(eventsAppended.WithLabelValues("lab_result"))
	EventAppended("lab_result")
	after := testutil.ToFloat64(eventsAppended.WithLabelValues("lab_result"))
	if after != before+1 {
		t.Errorf("expected append counter to increment, got %v -> %v", before, after)
	}

	beforeFail := testutil.ToFloat64(eventAppendFailures.WithLabelValues("document"))
	EventAppendFailed("document")
	afterFail := testutil.ToFloat64(eventAppendFailures.WithLabelValues("document"))
	if afterFail != beforeFail+1 {
		t.Errorf("expected failure counter to increment, got %v -> %v", beforeFail, afterFail)
	}
}

func TestObserveUpstream(t *testing.T) {
	beforeOK := testutil.ToFloat64(upstreamRequests.WithLabelValues("ai", "ok"))
	ObserveUpstream("ai", time.Now(), nil)
	if got := testutil.ToFloat64(upstreamRequests.WithLabelValues("ai", "ok")); got != beforeOK+1 {
		t.Errorf("expected ok counter to increment, got %v -> %v", beforeOK, got)
	}

	beforeErr := testutil.ToFloat64(upstreamRequests.WithLabelValues("payments", "error"))
	ObserveUpstream("payments", time.Now(), errors.New("timeout"))
	if got := testutil.ToFloat64(upstreamRequests.WithLabelValues("payments", "error")); got != beforeErr+1 {
		t.Errorf("expected error counter to increment, got %v -> %v", beforeErr, got)
	}
}

func TestHandler_Exposition(t *testing.T) {
	e := echo.New()
	e.GET("/metrics", Handler())

	EventAppended("vital")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "twin_events_appended_total") {
		t.Error("expected exposition to include twin_events_appended_total")
	}
}
