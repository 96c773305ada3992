package practitionerrole

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vetcare/practice/internal/platform/auth"
	"github.com/vetcare/practice/internal/platform/middleware"
)

func newTestHandler(t *testing.T) *echo.Echo {
	svc, _ := newTestService(t)
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop())
	e.Use(auth.DevAuthMiddleware())
	NewHandler(svc).RegisterRoutes(e.Group("/fhir"))
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, "application/fhir+json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Lifecycle(t *testing.T) {
	e := newTestHandler(t)

	rec := do(e, http.MethodPut, "/fhir/PractitionerRole/pr-1", roleJSON("Practitioner/p1", "Organization/o1", "doctor"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(e, http.MethodPut, "/fhir/PractitionerRole/pr-1", roleJSON("Practitioner/p1", "Organization/o1", "doctor"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat, got %d", rec.Code)
	}

	rec = do(e, http.MethodPost, "/fhir/PractitionerRole", roleJSON("Practitioner/p1", "Organization/o1", "doctor"))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate triple, got %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/fhir/PractitionerRole?practitioner=p1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var bundle map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &bundle)
	if bundle["total"] != float64(1) {
		t.Errorf("expected one match, got %v", bundle["total"])
	}

	if rec := do(e, http.MethodDelete, "/fhir/PractitionerRole/pr-1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, "/fhir/PractitionerRole/pr-1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_InvalidSearch(t *testing.T) {
	e := newTestHandler(t)
	if rec := do(e, http.MethodGet, "/fhir/PractitionerRole?active=perhaps", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
