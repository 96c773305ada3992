package organization

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/practice/internal/platform/auth"
	"github.com/vetcare/practice/internal/platform/fhir"
	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/pkg/pagination"
)

var searchParams = []string{"name", "identifier"}

// Handler provides HTTP handlers for the Organization domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Organization domain handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the Organization routes on the /fhir group.
func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	read := fhirGroup.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/Organization", h.SearchFHIR)
	read.GET("/Organization/:id", h.GetFHIR)

	write := fhirGroup.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("/Organization", h.CreateFHIR)
	write.PUT("/Organization/:id", h.UpsertFHIR)
}

// Capability describes the Organization interactions for /fhir/metadata.
func (h *Handler) Capability() fhir.CSResource {
	return fhir.ResourceCapability(ResourceType,
		[]string{"read", "create", "update", "search-type"},
		[]fhir.CSSearchParam{{Name: "name", Type: "string"}, {Name: "identifier", Type: "token"}},
	)
}

func (h *Handler) CreateFHIR(c echo.Context) error {
	resource, err := fhir.BindResource(c)
	if err != nil {
		return err
	}
	org, err := h.svc.Create(c.Request().Context(), resource)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Location", "/fhir/"+fhir.FormatReference(ResourceType, org.ResponseID()))
	return c.JSON(http.StatusCreated, ToResponse(org))
}

func (h *Handler) GetFHIR(c echo.Context) error {
	id, err := identifier.ParseValid("id", c.Param("id"))
	if err != nil {
		return err
	}
	org, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ToResponse(org))
}

func (h *Handler) UpsertFHIR(c echo.Context) error {
	id, err := identifier.ParseValid("id", c.Param("id"))
	if err != nil {
		return err
	}
	resource, err := fhir.BindResource(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Upsert(c.Request().Context(), &id, resource)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, ToResponse(res.Record))
}

func (h *Handler) SearchFHIR(c echo.Context) error {
	pg, err := pagination.Parse(c)
	if err != nil {
		return err
	}
	params, qs := pagination.Filters(c, searchParams...)
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	resources := make([]fhir.Object, len(items))
	for i, item := range items {
		resources[i] = ToResponse(item)
	}
	return c.JSON(http.StatusOK, fhir.NewSearchBundle(resources, fhir.SearchBundleParams{
		BaseURL:  "/fhir/" + ResourceType,
		QueryStr: qs,
		Count:    pg.Limit,
		Offset:   pg.Offset,
		Total:    total,
	}))
}
