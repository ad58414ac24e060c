// routes.go - Route registration helpers
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/coords-visualizer/backend/internal/config"
	"github.com/coords-visualizer/backend/internal/storage"
	"github.com/coords-visualizer/backend/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store               storage.Store
	StyleStore          storage.Store
	SessionMgr          SessionManager
	UploadMgr           *upload.Manager
	Version             string
	AllowedFileTypes    string
	WSMaxMessageSize    int64
	MaxDecompressedSize int64 // gzip websocket payloads, 0 = unlimited
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Files     FileHandler
	Convert   ConvertHandler
	Styles    StyleHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	styleStore := deps.StyleStore
	if styleStore == nil {
		styleStore = deps.Store
	}
	styles := NewStyleHandler(styleStore)

	return &Handlers{
		Health:    NewHealthHandler(deps.Version),
		Files:     NewFileHandler(deps.Store, deps.SessionMgr, deps.UploadMgr, deps.AllowedFileTypes),
		Convert:   NewConvertHandler(deps.Store, deps.SessionMgr, styles),
		Styles:    styles,
		WebSocket: NewWebSocketHandler(deps.SessionMgr, styles, deps.WSMaxMessageSize, deps.MaxDecompressedSize),
	}
}

// RouteOptions toggles optional routes
type RouteOptions struct {
	AllowFileDeletion bool
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers, opts RouteOptions) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// WebSocket endpoint
	apiGroup.GET("/ws/convert", handlers.WebSocket.HandleWebSocket)

	// File management
	apiGroup.POST("/files/upload", handlers.Files.HandleUploadFile)
	apiGroup.POST("/files/upload/binary", handlers.Files.HandleUploadBinary)
	apiGroup.POST("/files/upload/gzip", handlers.Files.HandleUploadCompressed)
	apiGroup.GET("/files/upload/:jobId/status", handlers.Files.HandleUploadJobStatus)
	apiGroup.GET("/files/recent", handlers.Files.HandleGetRecentFiles)
	apiGroup.GET("/files/:id", handlers.Files.HandleGetFile)
	apiGroup.PUT("/files/:id", handlers.Files.HandleRenameFile)

	// Conditional delete based on config
	if opts.AllowFileDeletion {
		apiGroup.DELETE("/files/:id", handlers.Files.HandleDeleteFile)
	}

	// Conversion
	apiGroup.GET("/parsers", handlers.Convert.HandleListParsers)
	apiGroup.POST("/convert", handlers.Convert.HandleStartConvert)
	apiGroup.POST("/convert/inline", handlers.Convert.HandleConvertInline)
	apiGroup.GET("/convert/:sessionId/status", handlers.Convert.HandleConvertStatus)
	apiGroup.GET("/convert/:sessionId/result", handlers.Convert.HandleConvertResult)
	apiGroup.GET("/convert/:sessionId/result/msgpack", handlers.Convert.HandleConvertResultMsgpack)
	apiGroup.POST("/convert/:sessionId/keepalive", handlers.Convert.HandleSessionKeepAlive)
	apiGroup.DELETE("/convert/:sessionId", handlers.Convert.HandleDeleteSession)

	// Styles
	apiGroup.GET("/styles", handlers.Styles.HandleListStyles)
	apiGroup.POST("/styles", handlers.Styles.HandleUploadStyle)
	apiGroup.GET("/styles/:id", handlers.Styles.HandleGetStyle)
}

// SetupMiddleware configures common middleware from the XML configuration
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig) {
	e.HTTPErrorHandler = NewErrorHandler(cfg.Advanced.ShowErrorDetails)

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") || path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/api/ws/") || strings.Contains(path, "/upload")
		},
		ErrorMessage: "Request timeout - conversion took too long",
	}))

	if cfg.Conversion.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Conversion.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
			},
		}))
	}

	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	if cfg.Server.EnableCORS {
		origins := splitList(cfg.Server.AllowOrigins)
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
