package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"ocgamma/internal/model"
	"ocgamma/internal/service"
)

// UserHandler serves the current user's profile, password and theme endpoints.
type UserHandler struct {
	svc service.UserService
	log *zap.Logger
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// UpdateProfileRequest lists the editable profile fields; omitted fields are left alone.
type UpdateProfileRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}

// PasswordChangeRequest represents a password change with confirmation.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=255"`
	ConfirmPassword string `json:"confirm_password" validate:"required,min=8,max=255,eqfield=NewPassword"`
}

// ThemePreferenceRequest represents a theme preference update.
type ThemePreferenceRequest struct {
	ThemePreference string `json:"theme_preference" validate:"required,oneof=light dark system"`
}

// UpdateMe godoc
// @Summary Update current user profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /auth/me [put]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	current := CurrentUser(c)
	updated, err := h.svc.UpdateProfile(c.Request().Context(), current.ID, service.ProfileUpdate{
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		return respondError(err)
	}

	h.log.Info("user profile updated", zap.Uint("user_id", updated.ID))
	return c.JSON(http.StatusOK, updated)
}

// ChangePassword godoc
// @Summary Change password
// @Tags users
// @Accept json
// @Produce json
// @Param request body PasswordChangeRequest true "Current and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/me/password [put]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req PasswordChangeRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	current := CurrentUser(c)
	if err := h.svc.ChangePassword(c.Request().Context(), current.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.log.Warn("password change failed", zap.Uint("user_id", current.ID), zap.Error(err))
		return respondError(err)
	}

	h.log.Info("password changed", zap.Uint("user_id", current.ID))
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// UpdateTheme godoc
// @Summary Update theme preference
// @Tags users
// @Accept json
// @Produce json
// @Param request body ThemePreferenceRequest true "light, dark or system"
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/me/theme [patch]
func (h *UserHandler) UpdateTheme(c echo.Context) error {
	var req ThemePreferenceRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	current := CurrentUser(c)
	updated, err := h.svc.UpdateTheme(c.Request().Context(), current.ID, model.ThemePreference(req.ThemePreference))
	if err != nil {
		return respondError(err)
	}

	h.log.Info("theme preference updated",
		zap.Uint("user_id", updated.ID), zap.String("theme", req.ThemePreference))
	return c.JSON(http.StatusOK, updated)
}
