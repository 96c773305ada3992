package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vetcare/practice/internal/config"
	"github.com/vetcare/practice/internal/platform/auth"
	"github.com/vetcare/practice/internal/platform/events"
	"github.com/vetcare/practice/internal/platform/store"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func testConfig() *config.Config {
	return &config.Config{
		Port:           "8000",
		Env:            "development",
		StoreDriver:    config.DriverMemory,
		CORSOrigins:    []string{"http://localhost:3000"},
		LogLevel:       "info",
		LogFormat:      "json",
		BlobMaxBytes:   1 << 20,
		PublicBaseURL:  "http://localhost:8000",
		RequestTimeout: 5 * time.Second,
		BodyLimitBytes: 1 << 20,
	}
}

func newTestServer(t *testing.T, cfg *config.Config, reg *prometheus.Registry) (*echo.Echo, *events.Recorder) {
	t.Helper()
	backend := store.NewMemory()
	cols := openCollections(backend)
	if err := cols.migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	rec := &events.Recorder{}
	e := newServer(cfg, deps{backend: backend, cols: cols, pub: rec, reg: reg, logger: zerolog.Nop()})
	return e, rec
}

func serve(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, "application/fhir+json")
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	e, _ := newTestServer(t, testConfig(), nil)

	if rec := serve(e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("/health: expected 200, got %d", rec.Code)
	}
	rec := serve(e, http.MethodGet, "/health/store", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/health/store: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"driver":"memory"`) {
		t.Errorf("expected the memory driver in %s", rec.Body.String())
	}
}

func TestServer_Metadata(t *testing.T) {
	e, _ := newTestServer(t, testConfig(), nil)

	rec := serve(e, http.MethodGet, "/fhir/metadata", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cs struct {
		ResourceType string `json:"resourceType"`
		Rest         []struct {
			Resource []struct {
				Type string `json:"type"`
			} `json:"resource"`
		} `json:"rest"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cs.ResourceType != "CapabilityStatement" || len(cs.Rest) != 1 {
		t.Fatalf("unexpected statement: %s", rec.Body.String())
	}
	got := map[string]bool{}
	for _, r := range cs.Rest[0].Resource {
		got[r.Type] = true
	}
	for _, want := range []string{"Organization", "RelatedPerson", "PractitionerRole", "Patient"} {
		if !got[want] {
			t.Errorf("metadata is missing %s", want)
		}
	}
}

func TestServer_CreateAndReadThroughStack(t *testing.T) {
	e, recorder := newTestServer(t, testConfig(), nil)

	rec := serve(e, http.MethodPost, "/fhir/Organization", `{"resourceType":"Organization","name":"Hill Clinic"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected a request id header")
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("no id in %s", rec.Body.String())
	}

	rec = serve(e, http.MethodGet, "/fhir/Organization/"+created.ID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("read: expected 200, got %d", rec.Code)
	}
	if n := len(recorder.Events()); n != 1 {
		t.Errorf("expected 1 change event, got %d", n)
	}
}

func TestServer_RejectsOversizedBody(t *testing.T) {
	cfg := testConfig()
	cfg.BodyLimitBytes = 64
	e, _ := newTestServer(t, cfg, nil)

	body := `{"resourceType":"Organization","name":"` + strings.Repeat("x", 128) + `"}`
	rec := serve(e, http.MethodPost, "/fhir/Organization", body, "")
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestServer_JWT(t *testing.T) {
	cfg := testConfig()
	cfg.AuthSigningKey = testSigningKey
	e, _ := newTestServer(t, cfg, nil)

	sign := func(roles ...string) string {
		t.Helper()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Roles: roles,
		})
		s, err := token.SignedString([]byte(testSigningKey))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		want   int
	}{
		{"public health", http.MethodGet, "/health", "", "", http.StatusOK},
		{"public metadata", http.MethodGet, "/fhir/metadata", "", "", http.StatusOK},
		{"missing token", http.MethodGet, "/fhir/Patient", "", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/fhir/Patient", "", "not-a-jwt", http.StatusUnauthorized},
		{"read-only may search", http.MethodGet, "/fhir/Patient", "", sign(auth.RoleReadOnly), http.StatusOK},
		{"read-only may not write", http.MethodPost, "/fhir/Organization", `{"resourceType":"Organization","name":"A"}`, sign(auth.RoleReadOnly), http.StatusForbidden},
		{"staff may write", http.MethodPost, "/fhir/Organization", `{"resourceType":"Organization","name":"A"}`, sign(auth.RoleStaff), http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.method, tt.path, tt.body, tt.token)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, _ := newTestServer(t, testConfig(), reg)

	serve(e, http.MethodPost, "/fhir/Organization", `{"resourceType":"Organization","name":"Hill Clinic"}`, "")
	serve(e, http.MethodPost, "/fhir/Organization", `{"resourceType":"Organization"}`, "")

	rec := serve(e, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`practice_reconcile_total{outcome="created",resource="Organization"} 1`,
		`practice_payload_rejections_total{kind="validation-failed",resource="Organization"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output is missing %q", want)
		}
	}
}

func TestServer_NoMetricsRoute(t *testing.T) {
	e, _ := newTestServer(t, testConfig(), nil)
	if rec := serve(e, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 when metrics are disabled, got %d", rec.Code)
	}
}

func TestMigrateStatus(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORE_DRIVER", config.DriverMemory)

	cmd := migrateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"status"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate status: %v", err)
	}
	for _, want := range []string{"Store: memory", "organizations", "parents", "practitioner_roles", "companions", "natural_key"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output is missing %q:\n%s", want, out.String())
		}
	}
}

func TestIndexNames(t *testing.T) {
	got := indexNames([]store.Index{{Name: "a"}, {Name: "b"}})
	if got != "a,b" {
		t.Errorf("expected a,b, got %q", got)
	}
}
