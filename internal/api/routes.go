// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pano-hotspots/backend/internal/source"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Source         source.PanoramaSource
	SessionMgr     SessionManager
	Logger         *log.Logger
	MaxMessageSize int64
	Version        string
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Panorama PanoramaHandler
	Session  SessionHandler
	Editor   EditorHandler
	Viewer   ViewerSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.SessionMgr),
		Panorama: NewPanoramaHandler(deps.Source, deps.SessionMgr),
		Session:  NewSessionHandler(deps.SessionMgr),
		Editor:   NewEditorHandler(deps.SessionMgr),
		Viewer:   NewViewerSocketHandler(deps.SessionMgr, deps.MaxMessageSize, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Panorama routes
	panoGroup := e.Group("/api/panoramas")
	panoGroup.GET("", handlers.Panorama.HandleListPanoramas)
	panoGroup.GET("/msgpack", handlers.Panorama.HandleListPanoramasMsgpack)
	panoGroup.GET("/search", handlers.Panorama.HandleSearchPanoramas)
	panoGroup.GET("/:id", handlers.Panorama.HandleGetPanorama)
	panoGroup.POST("/:id/select", handlers.Panorama.HandleSelectPanorama)
	panoGroup.GET("/:id/hotspots/:hotspotId/marker", handlers.Panorama.HandleGetMarker)

	e.POST("/api/shapes/preview", handlers.Panorama.HandlePreviewShape)

	// Session routes
	sessionGroup := e.Group("/api/sessions")
	sessionGroup.POST("", handlers.Session.HandleCreateSession)
	sessionGroup.GET("/:sessionId", handlers.Session.HandleGetSession)
	sessionGroup.DELETE("/:sessionId", handlers.Session.HandleDeleteSession)
	sessionGroup.POST("/:sessionId/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.POST("/:sessionId/edit-mode", handlers.Session.HandleSetEditMode)
	sessionGroup.GET("/:sessionId/viewer", handlers.Session.HandleGetViewer)
	sessionGroup.POST("/:sessionId/viewer/reset", handlers.Session.HandleResetView)
	sessionGroup.POST("/:sessionId/viewer/autorotate", handlers.Session.HandleSetAutoRotate)
	sessionGroup.POST("/:sessionId/viewer/fullscreen", handlers.Session.HandleToggleFullscreen)

	// Draft routes
	draftGroup := sessionGroup.Group("/:sessionId/draft")
	draftGroup.GET("", handlers.Editor.HandleGetDraft)
	draftGroup.POST("", handlers.Editor.HandleStartCreate)
	draftGroup.DELETE("", handlers.Editor.HandleDeleteDraft)
	draftGroup.POST("/select/:hotspotId", handlers.Editor.HandleSelectHotspot)
	draftGroup.PATCH("/fields", handlers.Editor.HandleUpdateFields)
	draftGroup.PATCH("/shape", handlers.Editor.HandleUpdateShape)
	draftGroup.POST("/shape-kind", handlers.Editor.HandleChangeShapeKind)
	draftGroup.POST("/points", handlers.Editor.HandleAddPoint)
	draftGroup.PUT("/points/:index", handlers.Editor.HandleMovePoint)
	draftGroup.DELETE("/points/:index", handlers.Editor.HandleRemovePoint)
	draftGroup.POST("/save", handlers.Editor.HandleSaveDraft)
	draftGroup.POST("/cancel", handlers.Editor.HandleCancelDraft)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/ws/viewer", handlers.Viewer.HandleViewerSocket)
}

// RegisterMetricsRoute exposes the registry's metrics
func RegisterMetricsRoute(e *echo.Echo, gatherer prometheus.Gatherer) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// MiddlewareOptions configures SetupMiddleware
type MiddlewareOptions struct {
	EnableCORS     bool
	AllowOrigins   []string
	RequestLogging bool
	BodyLimit      string
	RequestTimeout time.Duration
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !opts.RequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/keepalive") ||
				path == "/api/health" ||
				path == "/metrics"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))

	if opts.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: opts.RequestTimeout,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
			},
			ErrorMessage: "Request timeout",
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.EnableCORS {
		origins := opts.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

// ParseOrigins splits a comma separated origin list.
func ParseOrigins(list string) []string {
	var out []string
	for _, o := range strings.Split(list, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
