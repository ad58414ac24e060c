// handlers_style.go - Style override handlers
package api

import (
	"bytes"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/coords-visualizer/backend/internal/models"
	"github.com/coords-visualizer/backend/internal/parser"
	"github.com/coords-visualizer/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// maxStyleSize bounds uploaded style files; a style is a handful of keys.
const maxStyleSize = 64 * 1024

// DefaultStyleID names the built-in style; it is always resolvable.
const DefaultStyleID = "default"

func newStyleInfo(id, name, uploadedAt string, props models.ShapeProperties) *models.StyleInfo {
	// props are validated on parse, so the fill colour always renders
	rgba, _ := props.FillColorRGBA()
	return &models.StyleInfo{
		ID:            id,
		Name:          name,
		UploadedAt:    uploadedAt,
		Properties:    props,
		FillColorRGBA: rgba,
	}
}

// StyleHandlerImpl implements the StyleHandler interface
type StyleHandlerImpl struct {
	store  storage.Store
	mu     sync.RWMutex
	styles map[string]*models.StyleInfo
}

// NewStyleHandler creates a new style handler instance
func NewStyleHandler(store storage.Store) *StyleHandlerImpl {
	return &StyleHandlerImpl{
		store:  store,
		styles: make(map[string]*models.StyleInfo),
	}
}

// HandleUploadStyle accepts a YAML style file (multipart/form-data field "file")
func (h *StyleHandlerImpl) HandleUploadStyle(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxStyleSize+1))
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}
	if len(data) > maxStyleSize {
		return NewBadRequestError("style file too large", nil)
	}

	props, err := parser.ParseStyleFromReader(bytes.NewReader(data))
	if err != nil {
		return NewBadRequestError("invalid style file", err)
	}

	info, err := h.store.SaveBytes(file.Filename, models.FileKindStyle, data)
	if err != nil {
		return NewInternalError("failed to save style", err)
	}

	style := newStyleInfo(info.ID, file.Filename, info.UploadedAt.Format(time.RFC3339), props)

	h.mu.Lock()
	h.styles[style.ID] = style
	h.mu.Unlock()

	return c.JSON(http.StatusCreated, style)
}

// HandleGetStyle returns an uploaded style, or the default for id "default"
func (h *StyleHandlerImpl) HandleGetStyle(c echo.Context) error {
	id := c.Param("id")
	style, ok := h.GetStyle(id)
	if !ok {
		return NewNotFoundError("style", id)
	}
	return c.JSON(http.StatusOK, style)
}

// HandleListStyles returns all uploaded styles, newest first
func (h *StyleHandlerImpl) HandleListStyles(c echo.Context) error {
	h.mu.RLock()
	list := make([]*models.StyleInfo, 0, len(h.styles))
	for _, s := range h.styles {
		list = append(list, s)
	}
	h.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt > list[j].UploadedAt
	})
	return c.JSON(http.StatusOK, list)
}

// GetStyle returns an uploaded style by id, or the built-in style for DefaultStyleID.
func (h *StyleHandlerImpl) GetStyle(id string) (*models.StyleInfo, bool) {
	if id == DefaultStyleID {
		return newStyleInfo(DefaultStyleID, DefaultStyleID, "", models.DefaultShapeProperties), true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.styles[id]
	return s, ok
}
