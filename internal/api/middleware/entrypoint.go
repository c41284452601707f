package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	msgFullAuthRequired = "Full authentication is required to access this resource"
	msgAccessDenied     = "Access is denied"
)

// unauthorizedResponse is the body of every guard rejection. Status mirrors
// the HTTP status so clients reading only the body can tell an expired token
// (401) from a missing or insufficient one (403).
type unauthorizedResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

func writeExpired(c echo.Context, reason string) error {
	return writeRejection(c, http.StatusUnauthorized, "expired", reason)
}

func writeUnauthenticated(c echo.Context) error {
	return writeRejection(c, http.StatusForbidden, "unauthorized", msgFullAuthRequired)
}

func writeForbidden(c echo.Context) error {
	return writeRejection(c, http.StatusForbidden, "forbidden", msgAccessDenied)
}

func writeRejection(c echo.Context, status int, kind, message string) error {
	return c.JSON(status, unauthorizedResponse{
		Status:  status,
		Error:   kind,
		Message: message,
		Path:    c.Request().URL.Path,
	})
}
