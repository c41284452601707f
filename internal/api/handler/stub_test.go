package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/quizhub/auth-service/internal/api/middleware"
	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/core/ports"
)

// stubAuthService implements ports.AuthService; unset functions panic so a
// test notices unexpected calls.
type stubAuthService struct {
	signInFn        func(ctx context.Context, in ports.SignInInput) (*ports.SignInResult, error)
	signUpFn        func(ctx context.Context, in ports.SignUpInput) (*domain.User, error)
	refreshFn       func(ctx context.Context, token string) (string, error)
	updateSelfFn    func(ctx context.Context, username string, in ports.UpdateUserInput) (*ports.UpdateResult, error)
	updateByIDFn    func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error)
	deleteSelfFn    func(ctx context.Context, username string, confirm ports.DeleteConfirmation) error
	deleteByIDFn    func(ctx context.Context, id string) (*domain.User, error)
	getByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
}

func (s *stubAuthService) SignIn(ctx context.Context, in ports.SignInInput) (*ports.SignInResult, error) {
	return s.signInFn(ctx, in)
}

func (s *stubAuthService) SignUp(ctx context.Context, in ports.SignUpInput) (*domain.User, error) {
	return s.signUpFn(ctx, in)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (string, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubAuthService) UpdateSelf(ctx context.Context, username string, in ports.UpdateUserInput) (*ports.UpdateResult, error) {
	return s.updateSelfFn(ctx, username, in)
}

func (s *stubAuthService) UpdateByID(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	return s.updateByIDFn(ctx, id, in)
}

func (s *stubAuthService) DeleteSelf(ctx context.Context, username string, confirm ports.DeleteConfirmation) error {
	return s.deleteSelfFn(ctx, username, confirm)
}

func (s *stubAuthService) DeleteByID(ctx context.Context, id string) (*domain.User, error) {
	return s.deleteByIDFn(ctx, id)
}

func (s *stubAuthService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getByUsernameFn(ctx, username)
}

func (s *stubAuthService) LoadPrincipal(ctx context.Context, username string) (*domain.Principal, error) {
	u, err := s.getByUsernameFn(ctx, username)
	if err != nil {
		return nil, err
	}
	return domain.NewPrincipal(u), nil
}

func newTestContext(method, target string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withPrincipal(c echo.Context, username string, roles ...domain.RoleName) {
	c.Set(middleware.PrincipalKey, &domain.Principal{UserID: "u-1", Username: username, Roles: roles})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}
