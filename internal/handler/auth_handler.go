package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ocgamma/internal/auth"
	apperrors "ocgamma/internal/errors"
	"ocgamma/internal/model"
	"ocgamma/internal/service"
)

// SessionCookieName is the HttpOnly cookie carrying the session token.
const SessionCookieName = "access_token"

const (
	contextUserKey       = "current_user"
	contextClaimsKey     = "session_claims"
	contextSessionErrKey = "session_error"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService  service.AuthService
	log          *zap.Logger
	cookieMaxAge time.Duration
	secureCookie bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, log *zap.Logger, cookieMaxAge time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		log:          log,
		cookieMaxAge: cookieMaxAge,
		secureCookie: secureCookie,
	}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Username string  `json:"username" validate:"required,min=3,max=100"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=255"`
}

// LoginRequest represents a login request. Form and JSON bodies are both accepted.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// MessageResponse is returned by endpoints without a resource body.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} model.User
// @Failure 409 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		h.log.Warn("registration failed", zap.String("username", req.Username), zap.Error(err))
		return respondError(err)
	}

	h.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary Login and receive a session cookie
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		h.log.Warn("login failed", zap.String("username", req.Username), zap.Error(err))
		return respondError(err)
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	h.log.Info("user logged in", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, user)
}

// Logout godoc
// @Summary Logout and clear the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, _ := c.Get(contextClaimsKey).(*auth.Claims)
	if err := h.authService.Logout(c.Request().Context(), claims); err != nil {
		h.log.Error("revoke session token", zap.Error(err))
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	h.log.Info("user logged out")
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, CurrentUser(c))
}

// ParseSession is the echo-jwt ParseTokenFunc for the secured group: it
// resolves the cookie token into an active user and attaches both to c.
func (h *AuthHandler) ParseSession(c echo.Context, token string) (interface{}, error) {
	user, claims, err := h.authService.Authenticate(c.Request().Context(), token)
	if err != nil {
		c.Set(contextSessionErrKey, err)
		return nil, err
	}
	c.Set(contextUserKey, user)
	c.Set(contextClaimsKey, claims)
	return claims, nil
}

// SessionError is the echo-jwt ErrorHandler. A missing cookie and a bad
// token both surface as 401; storage failures keep their own status.
func (h *AuthHandler) SessionError(c echo.Context, err error) error {
	if sessionErr, ok := c.Get(contextSessionErrKey).(error); ok {
		return respondError(sessionErr)
	}
	return respondError(apperrors.ErrNotAuthenticated)
}

// CurrentUser returns the user attached by ParseSession.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(contextUserKey).(*model.User)
	return user
}

func invalidBody() error {
	return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
		Detail: "invalid request body",
		Code:   "INVALID_BODY",
	})
}

// respondError converts a service error into the API error envelope.
func respondError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return handleDBError(err)
	}
	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.StatusCode == http.StatusInternalServerError {
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// Helper function to handle GORM errors
func handleDBError(err error) *echo.HTTPError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, apperrors.ErrorResponse{
			Detail: "record not found",
			Code:   "NOT_FOUND",
		})
	}
	return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
		Detail: "database error",
		Code:   "DATABASE_ERROR",
	}).SetInternal(err)
}
