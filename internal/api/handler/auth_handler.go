package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/core/ports"
)

const (
	// HeaderRefresh carries the refresh token as "Refresh <token>".
	HeaderRefresh = "Refresh"

	bearerPrefix  = "Bearer "
	refreshPrefix = "Refresh "
)

// AuthHandler serves the open account routes: sign-in, sign-up and refresh.
type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignIn authenticates a user. Tokens are returned in the Authorization and
// Refresh headers, never in the body.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  signInResponse
// @Header       200   {string}  Authorization  "Bearer <access token>"
// @Header       200   {string}  Refresh        "Refresh <refresh token>"
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /user/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	res, err := h.authService.SignIn(c.Request().Context(), ports.SignInInput{
		Username: req.Username,
		Password: req.Password,
		RemoteIP: c.RealIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Bad credentials"})
		case errors.Is(err, domain.ErrTooManyAttempts):
			return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "Too many failed sign-in attempts, try again later"})
		}
		return err
	}

	c.Response().Header().Set(echo.HeaderAuthorization, bearerPrefix+res.AccessToken)
	c.Response().Header().Set(HeaderRefresh, refreshPrefix+res.RefreshToken)
	return c.JSON(http.StatusOK, signInResponse{Username: res.Username, Roles: res.Roles})
}

// SignUp registers a new account. No token is issued.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Registration details; roles accept the labels admin, mod and user"
// @Success      200   {object}  signUpResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /user/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	user, err := h.authService.SignUp(c.Request().Context(), ports.SignUpInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
		RemoteIP: c.RealIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			return c.JSON(http.StatusConflict, errorResponse{Error: "Error: Email is already in use!"})
		case domain.IsConflict(err):
			return c.JSON(http.StatusConflict, errorResponse{Error: "Error: Username is already taken!"})
		case errors.Is(err, domain.ErrUnknownRoleLabel):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Error: " + err.Error()})
		case errors.Is(err, domain.ErrRoleNotFound):
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error: role not found"})
		}
		return err
	}

	return c.JSON(http.StatusOK, signUpResponse{
		Success: fmt.Sprintf("User %s registered successfully", user.Username),
	})
}

// Refresh exchanges the refresh token in the Refresh header for a new access
// token. The refresh token itself is not rotated.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Produce      json
// @Param        Refresh  header    string  true  "Refresh <refresh token>"
// @Success      200      {object}  refreshResponse
// @Failure      403      {object}  errorResponse
// @Router       /user/refreshToken [get]
func (h *AuthHandler) Refresh(c echo.Context) error {
	header := c.Request().Header.Get(HeaderRefresh)
	if !strings.HasPrefix(header, refreshPrefix) {
		return c.JSON(http.StatusForbidden, errorResponse{Error: "no refresh token provided"})
	}

	token, err := h.authService.Refresh(c.Request().Context(), strings.TrimSpace(strings.TrimPrefix(header, refreshPrefix)))
	if err != nil {
		return c.JSON(http.StatusForbidden, errorResponse{Error: "Refresh token is invalid"})
	}

	return c.JSON(http.StatusOK, refreshResponse{NewToken: bearerPrefix + token})
}
