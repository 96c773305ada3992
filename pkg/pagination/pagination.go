// Package pagination reads the searchset paging parameters _count and
// _offset, and the search filters carried alongside them.
package pagination

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/practice/internal/platform/apperr"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// Parse reads _count and _offset. Absent values take the defaults and a
// _count above MaxLimit is clamped; anything unparsable is a validation error
// naming the parameter.
func Parse(c echo.Context) (Params, error) {
	p := Params{Limit: DefaultLimit}

	if raw := c.QueryParam("_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Params{}, apperr.Validation("_count", "must be a positive integer, got %q", raw)
		}
		p.Limit = min(n, MaxLimit)
	}
	if raw := c.QueryParam("_offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Params{}, apperr.Validation("_offset", "must be a non-negative integer, got %q", raw)
		}
		p.Offset = n
	}
	return p, nil
}

// Filters collects the non-empty search parameters named by keys, in key
// order, as an encoded query string for bundle links.
func Filters(c echo.Context, keys ...string) (map[string]string, string) {
	params := make(map[string]string, len(keys))
	q := url.Values{}
	for _, k := range keys {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
			q.Set(k, v)
		}
	}
	return params, q.Encode()
}
