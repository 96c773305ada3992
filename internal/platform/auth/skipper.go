package auth

import "github.com/labstack/echo/v4"

// Routes served without an identity.
var publicRoutes = []string{"/health", "/health/store", "/metrics", "/fhir/metadata"}

// AuthSkipper matches on the registered route, so /fhir/metadata/x is not
// public just because it shares a prefix.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

func IsPublicPath(path string) bool {
	for _, p := range publicRoutes {
		if p == path {
			return true
		}
	}
	return false
}
