package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/quizhub/auth-service/internal/api/handler"
	"github.com/quizhub/auth-service/internal/api/middleware"
	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/core/ports"

	_ "github.com/quizhub/auth-service/docs"
)

// Dependencies are the collaborators the HTTP layer needs.
type Dependencies struct {
	Auth     ports.AuthService
	Tokens   ports.TokenService
	Checkers map[string]handler.Checker
	Logger   zerolog.Logger

	// Registerer and Gatherer back the HTTP metrics and the /metrics route.
	// They default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	AllowedOrigins []string
}

// route is one row of the routing table. An empty role marks an open route.
type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
	role    domain.RoleName
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:  deps.AllowedOrigins,
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, handler.HeaderRefresh},
		ExposeHeaders: []string{echo.HeaderAuthorization, handler.HeaderRefresh},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "auth",
		Subsystem:  "http",
		Registerer: deps.Registerer,
	}))
	e.Use(middleware.Authenticate(deps.Tokens, deps.Auth, deps.Logger))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	accountHandler := handler.NewAccountHandler(deps.Auth)
	adminHandler := handler.NewAdminHandler(deps.Auth, deps.Logger)
	healthHandler := handler.NewHealthHandler(deps.Checkers)
	metricsHandler := echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer})

	routes := []route{
		// open
		{http.MethodPost, "/user/signin", authHandler.SignIn, ""},
		{http.MethodPost, "/user/signing", authHandler.SignIn, ""},
		{http.MethodPost, "/user/signup", authHandler.SignUp, ""},
		{http.MethodGet, "/user/refreshToken", authHandler.Refresh, ""},
		{http.MethodGet, "/health", healthHandler.Liveness, ""},
		{http.MethodGet, "/health/ready", healthHandler.Readiness, ""},
		{http.MethodGet, "/swagger/*", echoSwagger.WrapHandler, ""},

		// account owner
		{http.MethodPost, "/user/update", accountHandler.Update, domain.RoleUser},
		{http.MethodDelete, "/user/delete", accountHandler.Delete, domain.RoleUser},
		{http.MethodGet, "/user/test", accountHandler.Test, domain.RoleUser},
		{http.MethodGet, "/user/me", accountHandler.Me, domain.RoleUser},

		// administration
		{http.MethodPut, "/user/update/:userId", adminHandler.UpdateUser, domain.RoleAdmin},
		{http.MethodDelete, "/user/delete/:userId", adminHandler.DeleteUser, domain.RoleAdmin},

		// operations
		{http.MethodGet, "/metrics", metricsHandler, domain.RoleActuator},
	}

	for _, r := range routes {
		if r.role == "" {
			e.Add(r.method, r.path, r.handler)
			continue
		}
		e.Add(r.method, r.path, r.handler, middleware.RequireRole(r.role))
	}

	return e
}
