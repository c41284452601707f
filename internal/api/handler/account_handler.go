package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/core/ports"
)

// AccountHandler serves the routes a signed-in user calls on their own account.
type AccountHandler struct {
	authService ports.AuthService
}

func NewAccountHandler(authService ports.AuthService) *AccountHandler {
	return &AccountHandler{authService: authService}
}

// Update rewrites the caller's account. Blank fields keep their value; a new
// access token is returned when the username changes.
//
// @Summary      Update own account
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateUserRequest  true  "New values; roles use enumeration names such as ROLE_ADMIN"
// @Success      200   {object}  updateUserResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /user/update [post]
func (h *AccountHandler) Update(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Could not update user."})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	res, err := h.authService.UpdateSelf(c.Request().Context(), principal.Username, toUpdateInput(req))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			return c.JSON(http.StatusConflict, errorResponse{Error: "Error: Email is already in use!"})
		case domain.IsConflict(err):
			return c.JSON(http.StatusConflict, errorResponse{Error: "Error: Username is already taken!"})
		case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrRoleNotFound):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Could not update user."})
		}
		return err
	}

	if res.AccessToken != "" {
		c.Response().Header().Set(echo.HeaderAuthorization, bearerPrefix+res.AccessToken)
	}
	return c.JSON(http.StatusOK, updateUserResponse{
		Data:  userData{Username: res.User.Username, Roles: res.User.RoleNames()},
		Token: res.AccessToken,
	})
}

// Delete removes the caller's account. Both confirmation flags must be set.
//
// @Summary      Delete own account
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body                    body      deleteRequest  false  "Confirmation flags"
// @Param        deleteRequest           query     bool           false  "First confirmation flag"
// @Param        confirmedDeleteRequest  query     bool           false  "Second confirmation flag"
// @Success      200                     {object}  messageResponse
// @Failure      403                     {object}  messageResponse
// @Router       /user/delete [delete]
func (h *AccountHandler) Delete(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req deleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusForbidden, messageResponse{Message: "your account hasn't been deleted: missing confirmation"})
	}

	err = h.authService.DeleteSelf(c.Request().Context(), principal.Username, ports.DeleteConfirmation{
		DeleteRequest:          req.DeleteRequest,
		ConfirmedDeleteRequest: req.ConfirmedDeleteRequest,
	})
	if err != nil {
		if errors.Is(err, domain.ErrMissingConfirmation) {
			return c.JSON(http.StatusForbidden, messageResponse{Message: "your account hasn't been deleted: missing confirmation"})
		}
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "your account has been deleted"})
}

// Test is an authenticated probe that echoes the caller's identity.
//
// @Summary      Authenticated probe
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  probeResponse
// @Failure      403  {object}  errorResponse
// @Router       /user/test [get]
func (h *AccountHandler) Test(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, probeResponse{
		Message: fmt.Sprintf("hello %s", principal.Username),
		Roles:   principal.RoleStrings(),
	})
}

// Me returns the caller's profile.
//
// @Summary      Current user profile
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /user/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.authService.GetByUsername(c.Request().Context(), principal.Username)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profileResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Roles:    user.RoleNames(),
	})
}

func toUpdateInput(req updateUserRequest) ports.UpdateUserInput {
	return ports.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	}
}
