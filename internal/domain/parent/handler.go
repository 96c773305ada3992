package parent

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/practice/internal/platform/auth"
	"github.com/vetcare/practice/internal/platform/blobstore"
	"github.com/vetcare/practice/internal/platform/fhir"
	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/pkg/pagination"
)

// Handler provides HTTP handlers for the Parent domain.
type Handler struct {
	svc   *Service
	blobs blobstore.Uploader
}

func NewHandler(svc *Service, blobs blobstore.Uploader) *Handler {
	return &Handler{svc: svc, blobs: blobs}
}

// RegisterRoutes registers the RelatedPerson routes on the /fhir group.
func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	read := fhirGroup.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/RelatedPerson", h.SearchFHIR)
	read.GET("/RelatedPerson/:id", h.GetFHIR)

	write := fhirGroup.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("/RelatedPerson", h.CreateFHIR)
	write.PUT("/RelatedPerson/:id", h.UpsertFHIR)
	write.POST("/RelatedPerson/:id/photo", h.UploadPhoto)
}

func (h *Handler) Capability() fhir.CSResource {
	return fhir.ResourceCapability(ResourceType,
		[]string{"read", "create", "update", "search-type"},
		[]fhir.CSSearchParam{{Name: "name", Type: "string"}},
	)
}

func (h *Handler) CreateFHIR(c echo.Context) error {
	resource, err := fhir.BindResource(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), resource)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Location", "/fhir/"+fhir.FormatReference(ResourceType, p.ResponseID()))
	return c.JSON(http.StatusCreated, ToResponse(p))
}

func (h *Handler) GetFHIR(c echo.Context) error {
	id, err := identifier.ParseValid("id", c.Param("id"))
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ToResponse(p))
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

// UploadPhoto stores the multipart "file" field and links it as the
// parent's profile image.
func (h *Handler) UploadPhoto(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := identifier.ParseValid("id", c.Param("id"))
	if err != nil {
		return err
	}
	if _, err := h.svc.Get(ctx, id); err != nil {
		return err
	}
	up, err := blobstore.ReceiveFile(c, h.blobs)
	if err != nil {
		return err
	}
	p, err := h.svc.SetPhoto(ctx, id, up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ToResponse(p))
}

func (h *Handler) SearchFHIR(c echo.Context) error {
	pg, err := pagination.Parse(c)
	if err != nil {
		return err
	}
	params, qs := pagination.Filters(c, "name")
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
