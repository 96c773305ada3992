// Package blobstore stores uploaded photos. The service layer only ever sees
// the Upload record it returns; handlers stream content back on /blobs/:key.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vetcare/practice/internal/platform/apperr"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// DefaultMaxBytes is the upload limit when none is configured (10 MB).
const DefaultMaxBytes = 10 * 1024 * 1024

// AllowedContentTypes lists the image types accepted for photos.
var AllowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Upload describes a stored blob.
type Upload struct {
	URL          string    `json:"url"`
	Key          string    `json:"key"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	Hash         string    `json:"hash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Uploader interface {
	Upload(ctx context.Context, name, mimeType string, content io.Reader) (*Upload, error)
	Download(ctx context.Context, key string) (io.ReadCloser, *Upload, error)
}

type storedBlob struct {
	meta    Upload
	content []byte
}

// InMemoryBlobStore is a thread-safe, in-memory Uploader for testing/dev.
type InMemoryBlobStore struct {
	mu       sync.RWMutex
	blobs    map[string]*storedBlob
	baseURL  string
	maxBytes int64
}

// NewInMemoryBlobStore returns a store whose URLs are rooted at baseURL.
func NewInMemoryBlobStore(baseURL string, maxBytes int64) *InMemoryBlobStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &InMemoryBlobStore{
		blobs:    make(map[string]*storedBlob),
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}
}

// Upload validates inputs, reads the content, computes a SHA-256 hash, and
// stores the blob in memory.
func (s *InMemoryBlobStore) Upload(_ context.Context, name, mimeType string, content io.Reader) (*Upload, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingFileName
	}
	if !AllowedContentTypes[mimeType] {
		return nil, ErrInvalidContentType
	}

	data, err := io.ReadAll(io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)
	key := uuid.New().String()
	meta := Upload{
		URL:          s.baseURL + "/blobs/" + key,
		Key:          key,
		OriginalName: name,
		MimeType:     mimeType,
		Size:         int64(len(data)),
		Hash:         fmt.Sprintf("%x", h),
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.blobs[key] = &storedBlob{meta: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

// Download returns an io.ReadCloser over the blob content and its metadata.
func (s *InMemoryBlobStore) Download(_ context.Context, key string) (io.ReadCloser, *Upload, error) {
	s.mu.RLock()
	blob, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrBlobNotFound
	}

	meta := blob.meta
	return io.NopCloser(bytes.NewReader(blob.content)), &meta, nil
}

// Classify converts upload failures into client errors.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrInvalidContentType), errors.Is(err, ErrMissingFileName):
		return apperr.Validation("file", "%s", err.Error())
	default:
		return apperr.Wrap(err, "store upload")
	}
}

// ReceiveFile reads the multipart "file" field of the request and uploads it.
func ReceiveFile(c echo.Context, up Uploader) (*Upload, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, apperr.Validation("file", "is required")
	}
	src, err := file.Open()
	if err != nil {
		return nil, apperr.Wrap(err, "open uploaded file")
	}
	defer src.Close()

	result, err := up.Upload(c.Request().Context(), file.Filename, file.Header.Get("Content-Type"), src)
	if err != nil {
		return nil, Classify(err)
	}
	return result, nil
}

// BlobHandler serves stored blobs.
type BlobHandler struct {
	store Uploader
}

func NewBlobHandler(store Uploader) *BlobHandler {
	return &BlobHandler{store: store}
}

// RegisterRoutes mounts blob routes on the supplied Echo group.
func (h *BlobHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/blobs/:key", h.handleDownload)
}

func (h *BlobHandler) handleDownload(c echo.Context) error {
	key := c.Param("key")

	rc, meta, err := h.store.Download(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return apperr.NotFound("Blob", key)
		}
		return apperr.Wrap(err, "download blob")
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, meta.OriginalName))
	return c.Stream(http.StatusOK, meta.MimeType, rc)
}
