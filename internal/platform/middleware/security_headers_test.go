package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runSecurityHeaders(t *testing.T, hsts bool) http.Header {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/fhir/Patient/rex-1", nil), rec)

	err := SecurityHeaders(hsts)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec.Header()
}

func TestSecurityHeaders(t *testing.T) {
	h := runSecurityHeaders(t, false)
	for _, kv := range apiHeaders {
		if got := h.Get(kv[0]); got != kv[1] {
			t.Errorf("header %s: got %q, want %q", kv[0], got, kv[1])
		}
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must be off unless requested")
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	if got := runSecurityHeaders(t, true).Get("Strict-Transport-Security"); got == "" {
		t.Error("expected Strict-Transport-Security")
	}
}
