package practitionerrole

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/practice/internal/platform/auth"
	"github.com/vetcare/practice/internal/platform/fhir"
	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/pkg/pagination"
)

var searchParams = []string{"practitioner", "organization", "reference", "role", "active"}

// Handler provides HTTP handlers for PractitionerRole mappings.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	read := fhirGroup.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/PractitionerRole", h.SearchFHIR)
	read.GET("/PractitionerRole/:id", h.GetFHIR)

	write := fhirGroup.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("/PractitionerRole", h.CreateFHIR)
	write.PUT("/PractitionerRole/:id", h.UpsertFHIR)
	write.DELETE("/PractitionerRole/:id", h.DeleteFHIR)
}

func (h *Handler) Capability() fhir.CSResource {
	return fhir.ResourceCapability(ResourceType,
		[]string{"read", "create", "update", "delete", "search-type"},
		[]fhir.CSSearchParam{
			{Name: "practitioner", Type: "reference"},
			{Name: "organization", Type: "reference"},
			{Name: "role", Type: "token"},
			{Name: "active", Type: "token"},
		},
	)
}

func (h *Handler) CreateFHIR(c echo.Context) error {
	resource, err := fhir.BindResource(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Create(c.Request().Context(), resource)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Location", "/fhir/"+fhir.FormatReference(ResourceType, r.ResponseID()))
	return c.JSON(http.StatusCreated, ToResponse(r))
}

func (h *Handler) GetFHIR(c echo.Context) error {
	id, err := identifier.ParseValid("id", c.Param("id"))
	if err != nil {
		return err
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ToResponse(r))
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

func (h *Handler) DeleteFHIR(c echo.Context) error {
	id, err := identifier.ParseValid("id", c.Param("id"))
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
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
