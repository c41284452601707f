package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quizhub/auth-service/internal/api/middleware"
	"github.com/quizhub/auth-service/internal/core/domain"
)

// ctxPrincipal returns the principal bound by the Authenticate filter.
// Guarded routes always have one; the check protects handlers that are
// mounted without a guard by mistake.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return p, nil
}
