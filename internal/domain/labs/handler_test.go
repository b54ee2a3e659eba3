package labs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medinexus/twin/internal/platform/auth"
	"github.com/medinexus/twin/pkg/apperr"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID uuid.UUID) echo.Context {
	c := e.NewContext(req, rec)
	c.Set(auth.UserIDKey, userID.String())
	return c
}

func TestHandler_Create(t *testing.T) {
	h, e := newTestHandler()
	body := `{"test_name":"Glucose","value":7.5,"unit":"mmol/L","reference_range":"3.9-6.1"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New())

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var out struct {
		Lab           *LabResult `json:"lab"`
		EventID       string     `json:"event_id"`
		EventAppended bool       `json:"event_appended"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Lab == nil || out.Lab.Status != StatusHigh {
		t.Errorf("expected high status lab in response, got %+v", out.Lab)
	}
	if !out.EventAppended || out.EventID == "" {
		t.Errorf("expected appended event in response, got %+v", out)
	}
}

func TestHandler_Create_MissingFields(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New())

	if err := h.Create(c); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_Create_Unauthenticated(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Create(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_Get(t *testing.T) {
	h, e := newTestHandler()
	userID := uuid.New()
	lab, _, err := h.svc.Create(context.Background(), userID, CreateInput{TestName: "Glucose", Value: f(5.0), Unit: "mmol/L"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, userID)
	c.SetParamNames("id")
	c.SetParamValues(lab.ID.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.Get(c); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.Get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_List(t *testing.T) {
	h, e := newTestHandler()
	userID := uuid.New()
	if _, _, err := h.svc.Create(context.Background(), userID, CreateInput{TestName: "Glucose", Value: f(5.0), Unit: "mmol/L"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, userID)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Total != 1 {
		t.Errorf("expected total 1, got %d", out.Total)
	}
}

func TestHandler_Trends(t *testing.T) {
	h, e := newTestHandler()
	userID := uuid.New()
	if _, _, err := h.svc.Create(context.Background(), userID, CreateInput{TestName: "Glucose", Value: f(7.5), Unit: "mmol/L", ReferenceRange: "3.9-6.1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/?test_name=Glucose", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, userID)

	if err := h.Trends(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out Trend
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Points) != 1 || out.Points[0].Status != StatusHigh {
		t.Errorf("unexpected trend: %+v", out)
	}
}

func TestHandler_Trends_MissingTestName(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, uuid.New())

	if err := h.Trends(c); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e := newTestHandler()
	api := e.Group("/api/v1")
	h.RegisterRoutes(api)
	routePaths := make(map[string]bool)
	for _, r := range e.Routes() {
		routePaths[r.Method+":"+r.Path] = true
	}
	for _, path := range []string{"POST:/api/v1/labs", "GET:/api/v1/labs", "GET:/api/v1/labs/trends", "GET:/api/v1/labs/:id"} {
		if !routePaths[path] {
			t.Errorf("missing route: %s", path)
		}
	}
}
