package fhir

import (
	"encoding/json"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/practice/internal/platform/apperr"
)

// MaxResourceBytes bounds the size of a single resource body.
const MaxResourceBytes = 1 << 20

// BindResource reads the request body as a JSON object. Bodies that are not a
// JSON object are rejected as invalid payloads.
func BindResource(c echo.Context) (Object, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxResourceBytes+1))
	if err != nil {
		return nil, apperr.Invalid("failed to read request body")
	}
	if len(body) > MaxResourceBytes {
		return nil, apperr.Invalid("request body exceeds %d bytes", MaxResourceBytes)
	}
	var resource Object
	if err := json.Unmarshal(body, &resource); err != nil {
		return nil, apperr.Invalid("request body is not a JSON object: %v", err)
	}
	if resource == nil {
		return nil, apperr.Invalid("request body is not a JSON object")
	}
	return resource, nil
}
