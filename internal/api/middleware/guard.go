package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/pkg/metrics"
)

// RequireRole admits the request only when Authenticate bound a principal
// holding role. Rejections are rendered by the unauthorized entry point.
func RequireRole(role domain.RoleName) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := PrincipalFrom(c)
			if principal == nil {
				if reason := ExpiredReason(c); reason != "" {
					metrics.GuardRejectionsTotal.WithLabelValues("expired").Inc()
					return writeExpired(c, reason)
				}
				metrics.GuardRejectionsTotal.WithLabelValues("unauthenticated").Inc()
				return writeUnauthenticated(c)
			}
			if !principal.HasRole(role) {
				metrics.GuardRejectionsTotal.WithLabelValues("forbidden").Inc()
				return writeForbidden(c)
			}
			return next(c)
		}
	}
}
