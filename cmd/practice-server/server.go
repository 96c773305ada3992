package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vetcare/practice/internal/config"
	"github.com/vetcare/practice/internal/domain/companion"
	"github.com/vetcare/practice/internal/domain/organization"
	"github.com/vetcare/practice/internal/domain/parent"
	"github.com/vetcare/practice/internal/domain/practitionerrole"
	"github.com/vetcare/practice/internal/platform/auth"
	"github.com/vetcare/practice/internal/platform/blobstore"
	"github.com/vetcare/practice/internal/platform/db"
	"github.com/vetcare/practice/internal/platform/events"
	"github.com/vetcare/practice/internal/platform/fhir"
	"github.com/vetcare/practice/internal/platform/metrics"
	"github.com/vetcare/practice/internal/platform/middleware"
	"github.com/vetcare/practice/internal/platform/store"
)

// uploadOverhead is the room left for multipart framing above BLOB_MAX_BYTES.
const uploadOverhead = 64 * 1024

type collections struct {
	orgs      *organization.Collection
	parents   *parent.Collection
	roles     *practitionerrole.Collection
	pets      *companion.Collection
}

func openCollections(b store.Backend) *collections {
	return &collections{
		orgs:      organization.OpenCollection(b),
		parents:   parent.OpenCollection(b),
		roles:     practitionerrole.OpenCollection(b),
		pets:      companion.OpenCollection(b),
	}
}

func (c *collections) migrate(ctx context.Context) error {
	if err := organization.Migrate(ctx, c.orgs); err != nil {
		return fmt.Errorf("%s: %w", c.orgs.Name(), err)
	}
	if err := parent.Migrate(ctx, c.parents); err != nil {
		return fmt.Errorf("%s: %w", c.parents.Name(), err)
	}
	if err := practitionerrole.Migrate(ctx, c.roles); err != nil {
		return fmt.Errorf("%s: %w", c.roles.Name(), err)
	}
	if err := companion.Migrate(ctx, c.pets); err != nil {
		return fmt.Errorf("%s: %w", c.pets.Name(), err)
	}
	return nil
}

type collectionStatus struct {
	name    string
	indexes []store.Index
	count   func(ctx context.Context) (int64, error)
}

func (c *collections) status() []collectionStatus {
	return []collectionStatus{
		{c.orgs.Name(), organization.Indexes, func(ctx context.Context) (int64, error) { return c.orgs.Count(ctx, store.Query{}) }},
		{c.parents.Name(), parent.Indexes, func(ctx context.Context) (int64, error) { return c.parents.Count(ctx, store.Query{}) }},
		{c.roles.Name(), practitionerrole.Indexes, func(ctx context.Context) (int64, error) { return c.roles.Count(ctx, store.Query{}) }},
		{c.pets.Name(), companion.Indexes, func(ctx context.Context) (int64, error) { return c.pets.Count(ctx, store.Query{}) }},
	}
}

func indexNames(indexes []store.Index) string {
	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		names = append(names, idx.Name)
	}
	return strings.Join(names, ",")
}

// deps are the collaborators newServer wires into the HTTP surface.
type deps struct {
	backend store.Backend
	cols    *collections
	pub     events.Publisher
	reg     *prometheus.Registry // nil disables /metrics
	logger  zerolog.Logger
}

type fhirHandler interface {
	RegisterRoutes(g *echo.Group)
	Capability() fhir.CSResource
}

func newServer(cfg *config.Config, d deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(d.logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.Logger(d.logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimitBytes, cfg.BlobMaxBytes+uploadOverhead))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if cfg.DevAuth() {
		d.logger.Warn().Msg("no AUTH_SIGNING_KEY in development: every request runs as admin")
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		Skipper:           auth.AuthSkipper,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/store", db.HealthHandler(d.backend))

	var m *metrics.Metrics
	if d.reg != nil {
		m = metrics.New(d.reg)
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.reg, promhttp.HandlerOpts{})))
	}

	blobs := blobstore.NewInMemoryBlobStore(cfg.PublicBaseURL, cfg.BlobMaxBytes)
	blobstore.NewBlobHandler(blobs).RegisterRoutes(e.Group("", auth.RequireRole(auth.ReadRoles...)))

	logger := d.logger.With().Str("component", "fhir").Logger()

	orgSvc := organization.NewService(d.cols.orgs)
	orgSvc.SetPublisher(d.pub)
	orgSvc.SetMetrics(m)
	orgSvc.SetLogger(logger)

	parentSvc := parent.NewService(d.cols.parents)
	parentSvc.SetPublisher(d.pub)
	parentSvc.SetMetrics(m)
	parentSvc.SetLogger(logger)

	roleSvc := practitionerrole.NewService(d.cols.roles)
	roleSvc.SetPublisher(d.pub)
	roleSvc.SetMetrics(m)
	roleSvc.SetLogger(logger)

	petSvc := companion.NewService(d.cols.pets)
	petSvc.SetPublisher(d.pub)
	petSvc.SetMetrics(m)
	petSvc.SetLogger(logger)

	handlers := []fhirHandler{
		organization.NewHandler(orgSvc),
		parent.NewHandler(parentSvc, blobs),
		practitionerrole.NewHandler(roleSvc),
		companion.NewHandler(petSvc, blobs),
	}

	fhirGroup := e.Group("/fhir")
	resources := make([]fhir.CSResource, 0, len(handlers))
	for _, h := range handlers {
		h.RegisterRoutes(fhirGroup)
		resources = append(resources, h.Capability())
	}
	capability := fhir.NewCapabilityStatement(resources)
	fhirGroup.GET("/metadata", func(c echo.Context) error {
		return c.JSON(http.StatusOK, capability)
	})

	return e
}
