package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/filestore/docs"
	"github.com/99minutos/filestore/internal/api/handler"
	"github.com/99minutos/filestore/internal/api/middleware"
	"github.com/99minutos/filestore/internal/core/ports"
	"github.com/99minutos/filestore/internal/infrastructure/http/handlers"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth     ports.AuthService
	Sessions ports.SessionService
	Files    ports.FileService
	Cookies  *middleware.CookiePolicy
	Checks   map[string]handlers.Check
	Log      zerolog.Logger

	MaxUploadBytes int64

	// Registerer and Gatherer default to the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "filestore",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Cookies, deps.Log)
	fileHandler := handler.NewFileHandler(deps.Files, deps.MaxUploadBytes, deps.Log)
	session := middleware.Session(deps.Sessions, deps.Cookies, deps.Log)

	// --- Auth routes ---
	e.POST("/signin", authHandler.SignIn)
	e.POST("/signin/new_token", authHandler.NewToken)
	e.POST("/signup", authHandler.SignUp)
	e.GET("/logout", authHandler.Logout)
	e.GET("/info", authHandler.Info, session)

	// --- File routes (session required) ---
	files := e.Group("/file", session)
	files.POST("/upload", fileHandler.Upload)
	files.GET("/list", fileHandler.List)
	files.GET("/download/:id", fileHandler.Download)
	files.PUT("/update/:id", fileHandler.Update)
	files.DELETE("/delete/:id", fileHandler.Delete)
	files.GET("/:id", fileHandler.Get)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
