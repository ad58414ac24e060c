// handlers_convert.go - Conversion session handlers
package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/coords-visualizer/backend/internal/export"
	"github.com/coords-visualizer/backend/internal/models"
	"github.com/coords-visualizer/backend/internal/parser"
	"github.com/coords-visualizer/backend/internal/session"
	"github.com/coords-visualizer/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// StyleLookup resolves uploaded style ids.
type StyleLookup interface {
	GetStyle(id string) (*models.StyleInfo, bool)
}

// ConvertHandlerImpl implements the ConvertHandler interface
type ConvertHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager
	styles     StyleLookup
}

// NewConvertHandler creates a new conversion handler instance
func NewConvertHandler(store storage.Store, sessionMgr SessionManager, styles StyleLookup) ConvertHandler {
	return &ConvertHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
		styles:     styles,
	}
}

// HandleStartConvert starts a background conversion of a stored file
func (h *ConvertHandlerImpl) HandleStartConvert(c echo.Context) error {
	var req startConvertRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.FileID == "" {
		return NewValidationError("fileId")
	}

	path, err := h.store.GetFilePath(req.FileID)
	if err != nil {
		return NewNotFoundError("file", req.FileID)
	}

	props, apiErr := h.resolveStyle(req.StyleID)
	if apiErr != nil {
		return apiErr
	}

	sess, err := h.sessionMgr.StartSession(session.Request{
		FileID:     req.FileID,
		FilePath:   path,
		ParserName: req.Parser,
		StyleID:    req.StyleID,
		Properties: props,
	})
	if err != nil {
		return NewBadRequestError("failed to start conversion", err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleConvertStatus returns the current state of a session
func (h *ConvertHandlerImpl) HandleConvertStatus(c echo.Context) error {
	id := c.Param("sessionId")
	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	return c.JSON(http.StatusOK, sess)
}

// HandleConvertResult returns the JSON export of a completed session
func (h *ConvertHandlerImpl) HandleConvertResult(c echo.Context) error {
	id := c.Param("sessionId")
	data, ok := h.sessionMgr.GetResult(id)
	if !ok {
		return h.resultUnavailable(id)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// HandleConvertResultMsgpack returns the export of a completed session as msgpack
func (h *ConvertHandlerImpl) HandleConvertResultMsgpack(c echo.Context) error {
	id := c.Param("sessionId")
	data, ok, err := h.sessionMgr.GetResultMsgpack(id)
	if !ok {
		return h.resultUnavailable(id)
	}
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleConvertInline converts a text/plain request body synchronously.
// Query params: parser, styleId.
func (h *ConvertHandlerImpl) HandleConvertInline(c echo.Context) error {
	props, apiErr := h.resolveStyle(c.QueryParam("styleId"))
	if apiErr != nil {
		return apiErr
	}

	res, err := h.sessionMgr.ConvertReader(c.Request().Body, c.QueryParam("parser"), props)
	if err != nil {
		return conversionError(err)
	}

	c.Response().Header().Set("X-Shape-Count", strconv.Itoa(len(res.Drawing.Shapes)))
	c.Response().Header().Set("X-Warning-Count", strconv.Itoa(len(res.Warnings)))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, res.JSON)
}

// HandleSessionKeepAlive keeps a session from being cleaned up
func (h *ConvertHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if !h.sessionMgr.TouchSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleDeleteSession discards a session and its result
func (h *ConvertHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if !h.sessionMgr.DeleteSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleListParsers lists the parser names accepted by conversion requests
func (h *ConvertHandlerImpl) HandleListParsers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessionMgr.ParserNames())
}

func (h *ConvertHandlerImpl) resolveStyle(styleID string) (*models.ShapeProperties, *APIError) {
	if styleID == "" || h.styles == nil {
		return nil, nil
	}
	style, ok := h.styles.GetStyle(styleID)
	if !ok {
		return nil, NewNotFoundError("style", styleID)
	}
	props := style.Properties
	return &props, nil
}

func (h *ConvertHandlerImpl) resultUnavailable(id string) error {
	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	if sess.Status == models.SessionStatusError {
		return NewUnprocessableError("conversion failed", errors.New(sess.Error))
	}
	return NewConflictError("conversion not complete: " + string(sess.Status))
}

// conversionError maps converter failures to API errors.
func conversionError(err error) *APIError {
	switch {
	case errors.Is(err, parser.ErrMalformedPoint),
		errors.Is(err, parser.ErrUnknownPoint),
		errors.Is(err, export.ErrDegenerateShape):
		return NewUnprocessableError("conversion failed", err)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return NewBadRequestError("truncated input", err)
	default:
		return NewBadRequestError("conversion failed", err)
	}
}

type startConvertRequest struct {
	FileID  string `json:"fileId"`
	Parser  string `json:"parser,omitempty"`
	StyleID string `json:"styleId,omitempty"`
}
