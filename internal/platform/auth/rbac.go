package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

// ReadRoles may read practice records; WriteRoles may change them. Admin
// satisfies any role requirement.
var (
	ReadRoles  = []string{RoleVeterinarian, RoleStaff, RoleReadOnly}
	WriteRoles = []string{RoleVeterinarian, RoleStaff}
)

// HasRole reports whether the identity on ctx holds any of roles.
func HasRole(ctx context.Context, roles ...string) bool {
	held := RolesFromContext(ctx)
	if slices.Contains(held, RoleAdmin) {
		return true
	}
	for _, r := range roles {
		if slices.Contains(held, r) {
			return true
		}
	}
	return false
}

// RequireRole rejects requests whose identity holds none of roles with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	msg := "requires one of the roles: " + strings.Join(roles, ", ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !HasRole(c.Request().Context(), roles...) {
				return echo.NewHTTPError(http.StatusForbidden, msg)
			}
			return next(c)
		}
	}
}
