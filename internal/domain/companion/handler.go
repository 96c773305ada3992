package companion

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/practice/internal/platform/auth"
	"github.com/vetcare/practice/internal/platform/blobstore"
	"github.com/vetcare/practice/internal/platform/fhir"
	"github.com/vetcare/practice/internal/platform/identifier"
	"github.com/vetcare/practice/pkg/pagination"
)

var searchParams = []string{"species", "status", "identifier"}

// Handler provides HTTP handlers for the Companion domain.
type Handler struct {
	svc   *Service
	blobs blobstore.Uploader
}

func NewHandler(svc *Service, blobs blobstore.Uploader) *Handler {
	return &Handler{svc: svc, blobs: blobs}
}

// RegisterRoutes registers the Patient routes on the /fhir group.
func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	read := fhirGroup.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/Patient", h.SearchFHIR)
	read.GET("/Patient/:id", h.GetFHIR)

	write := fhirGroup.Group("", auth.RequireRole(auth.WriteRoles...))
	write.POST("/Patient", h.CreateFHIR)
	write.PUT("/Patient/:id", h.UpsertFHIR)
	write.POST("/Patient/:id/photo", h.UploadPhoto)
}

func (h *Handler) Capability() fhir.CSResource {
	return fhir.ResourceCapability(ResourceType,
		[]string{"read", "create", "update", "search-type"},
		[]fhir.CSSearchParam{
			{Name: "species", Type: "token"},
			{Name: "status", Type: "token"},
			{Name: "identifier", Type: "token"},
		},
	)
}

func (h *Handler) CreateFHIR(c echo.Context) error {
	resource, err := fhir.BindResource(c)
	if err != nil {
		return err
	}
	pet, err := h.svc.Create(c.Request().Context(), resource)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Location", "/fhir/"+fhir.FormatReference(ResourceType, pet.ResponseID()))
	return c.JSON(http.StatusCreated, ToResponse(pet))
}

func (h *Handler) GetFHIR(c echo.Context) error {
	id, err := identifier.ParseValid("id", c.Param("id"))
	if err != nil {
		return err
	}
	pet, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ToResponse(pet))
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
// companion's photo.
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
	pet, err := h.svc.SetPhoto(ctx, id, up)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ToResponse(pet))
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
