// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"io"

	"github.com/coords-visualizer/backend/internal/models"
	"github.com/coords-visualizer/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// FileHandler handles coordinate file operations
type FileHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadBinary(c echo.Context) error
	HandleUploadCompressed(c echo.Context) error
	HandleUploadJobStatus(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
}

// ConvertHandler handles conversion session operations
type ConvertHandler interface {
	HandleStartConvert(c echo.Context) error
	HandleConvertStatus(c echo.Context) error
	HandleConvertResult(c echo.Context) error
	HandleConvertResultMsgpack(c echo.Context) error
	HandleConvertInline(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleListParsers(c echo.Context) error
}

// StyleHandler handles style override files
type StyleHandler interface {
	HandleUploadStyle(c echo.Context) error
	HandleGetStyle(c echo.Context) error
	HandleListStyles(c echo.Context) error
	GetStyle(id string) (*models.StyleInfo, bool)
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(req session.Request) (*models.ConvertSession, error)
	GetSession(id string) (*models.ConvertSession, bool)
	TouchSession(id string) bool
	GetResult(id string) ([]byte, bool)
	GetResultMsgpack(id string) ([]byte, bool, error)
	ConvertReader(r io.Reader, parserName string, props *models.ShapeProperties) (*session.ConvertResult, error)
	DeleteSession(id string) bool
	DeleteSessionsForFile(fileID string) int
	ParserNames() []string
}
