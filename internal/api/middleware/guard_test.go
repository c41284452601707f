package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/quizhub/auth-service/internal/core/domain"
)

func runGuard(t *testing.T, role domain.RoleName, setup func(c echo.Context)) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/user/delete/42", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}

	called := false
	handler := RequireRole(role)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec, called
}

func decodeRejection(t *testing.T, rec *httptest.ResponseRecorder) unauthorizedResponse {
	t.Helper()
	var body unauthorizedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return body
}

func TestRequireRole_Allows(t *testing.T) {
	rec, called := runGuard(t, domain.RoleAdmin, func(c echo.Context) {
		c.Set(PrincipalKey, &domain.Principal{Username: "root", Roles: []domain.RoleName{domain.RoleUser, domain.RoleAdmin}})
	})

	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_ForbidsMissingRole(t *testing.T) {
	rec, called := runGuard(t, domain.RoleAdmin, func(c echo.Context) {
		c.Set(PrincipalKey, &domain.Principal{Username: "alex", Roles: []domain.RoleName{domain.RoleUser}})
	})

	if called {
		t.Fatalf("should not reach next handler")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	body := decodeRejection(t, rec)
	if body.Status != http.StatusForbidden || body.Error != "forbidden" || body.Message != msgAccessDenied {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Path != "/user/delete/42" {
		t.Fatalf("unexpected path: %q", body.Path)
	}
}

func TestRequireRole_AnonymousIsUnauthorized(t *testing.T) {
	rec, called := runGuard(t, domain.RoleUser, nil)

	if called {
		t.Fatalf("should not reach next handler")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	body := decodeRejection(t, rec)
	if body.Status != http.StatusForbidden || body.Error != "unauthorized" || body.Message != msgFullAuthRequired {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRequireRole_ExpiredIs401(t *testing.T) {
	rec, called := runGuard(t, domain.RoleUser, func(c echo.Context) {
		c.Set(ExpiredKey, expiredReason)
	})

	if called {
		t.Fatalf("should not reach next handler")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	body := decodeRejection(t, rec)
	if body.Status != http.StatusUnauthorized || body.Error != "expired" || body.Message != expiredReason {
		t.Fatalf("unexpected body: %+v", body)
	}
}
