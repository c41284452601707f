package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/core/ports"
)

// AdminHandler serves the administrator routes addressing users by id.
type AdminHandler struct {
	authService ports.AuthService
	log         zerolog.Logger
}

func NewAdminHandler(authService ports.AuthService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{authService: authService, log: log}
}

// UpdateUser rewrites the account with the given id.
//
// @Summary      Update a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string             true  "User id"
// @Param        body    body      updateUserRequest  true  "New values"
// @Success      200     {object}  messageResponse
// @Failure      400     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  messageResponse
// @Failure      409     {object}  errorResponse
// @Failure      500     {object}  messageResponse
// @Router       /user/update/{userId} [put]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	user, err := h.authService.UpdateByID(c.Request().Context(), c.Param("userId"), toUpdateInput(req))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, messageResponse{Message: "could not update user : user not found"})
		case errors.Is(err, domain.ErrEmailTaken):
			return c.JSON(http.StatusConflict, errorResponse{Error: "Error: Email is already in use!"})
		case domain.IsConflict(err):
			return c.JSON(http.StatusConflict, errorResponse{Error: "Error: Username is already taken!"})
		}
		h.log.Error().Err(err).Str("user_id", c.Param("userId")).Msg("admin update failed")
		return c.JSON(http.StatusInternalServerError, messageResponse{
			Message: "something went wrong when updating the user: please contact an administrator.",
		})
	}

	return c.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("user %s updated successfully", user.Username)})
}

// DeleteUser removes the account with the given id.
//
// @Summary      Delete a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "User id"
// @Success      200     {object}  messageResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  messageResponse
// @Router       /user/delete/{userId} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	user, err := h.authService.DeleteByID(c.Request().Context(), c.Param("userId"))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			h.log.Error().Err(err).Str("user_id", c.Param("userId")).Msg("admin delete failed")
		}
		return c.JSON(http.StatusNotFound, messageResponse{Message: "can't delete the user"})
	}

	return c.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("User %s deleted successfully", user.Username)})
}
