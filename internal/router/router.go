package router

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"ocgamma/internal/cache"
	"ocgamma/internal/config"
	apperrors "ocgamma/internal/errors"
	"ocgamma/internal/handler"
	"ocgamma/internal/logging"
	"ocgamma/internal/ratelimit"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Per-client budgets for the throttled endpoints.
const (
	registerLimit       = 3
	loginLimit          = 5
	passwordChangeLimit = 3
	themeUpdateLimit    = 10
	limitWindow         = time.Minute
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log *zap.Logger,
	cacheClient *cache.Client,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) {
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(log)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: logging.HeaderCorrelationID,
	}))
	e.Use(logging.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAccept, logging.HeaderCorrelationID},
		ExposeHeaders:    []string{logging.HeaderCorrelationID},
		AllowCredentials: true,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: Version})
	})
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"message": "Welcome to the account API",
			"version": Version,
			"docs":    "/swagger/index.html",
		})
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	limit := func(name string, n int) echo.MiddlewareFunc {
		return ratelimit.Middleware(ratelimit.NewStore(cacheClient, name, n, limitWindow, log))
	}

	authGroup := e.Group("/api/v1/auth")

	// Public routes
	authGroup.POST("/register", authHandler.Register, limit("register", registerLimit))
	authGroup.POST("/login", authHandler.Login, limit("login", loginLimit))

	// Secured routes (require the session cookie)
	secured := authGroup.Group("", echojwt.WithConfig(echojwt.Config{
		TokenLookup:    "cookie:" + handler.SessionCookieName,
		ParseTokenFunc: authHandler.ParseSession,
		ErrorHandler:   authHandler.SessionError,
	}))

	secured.POST("/logout", authHandler.Logout)
	secured.GET("/me", authHandler.Me)
	secured.PUT("/me", userHandler.UpdateMe)
	secured.PUT("/me/password", userHandler.ChangePassword, limit("password_change", passwordChangeLimit))
	secured.PATCH("/me/theme", userHandler.UpdateTheme, limit("theme", themeUpdateLimit))
}

// CustomValidator wraps validator for Echo and reports failures per field.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator names fields by their JSON tag so error locations match the request body.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{
			Loc:  []string{"body", fe.Field()},
			Msg:  fieldMessage(fe),
			Type: fe.Tag(),
		})
	}
	return apperrors.NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return "ensure this value has at least " + fe.Param() + " characters"
	case "max":
		return "ensure this value has at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "eqfield":
		return "passwords do not match"
	default:
		return "invalid value"
	}
}

// ErrorHandler renders every error as the {detail, code} envelope.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorBody(err)
		if status >= http.StatusInternalServerError {
			log.Error("request error",
				zap.String("path", c.Path()),
				zap.String("correlation_id", c.Response().Header().Get(logging.HeaderCorrelationID)),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error("write error response", zap.Error(err))
		}
	}
}

func errorBody(err error) (int, apperrors.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch msg := he.Message.(type) {
		case apperrors.ErrorResponse:
			return he.Code, msg
		case string:
			return he.Code, apperrors.ErrorResponse{Detail: msg, Code: statusCode(he.Code)}
		default:
			return he.Code, apperrors.ErrorResponse{Detail: http.StatusText(he.Code), Code: statusCode(he.Code)}
		}
	}
	httpErr := apperrors.MapErrorToHTTP(err)
	return httpErr.StatusCode, httpErr.ToErrorResponse()
}

func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
