// handlers_files.go - Coordinate file handlers
package api

import (
	"encoding/base64"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/coords-visualizer/backend/internal/models"
	"github.com/coords-visualizer/backend/internal/storage"
	"github.com/coords-visualizer/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store        storage.Store
	sessionMgr   SessionManager
	uploadMgr    *upload.Manager
	allowedTypes []string
}

// NewFileHandler creates a new file handler instance.
// allowedTypes is a comma-separated extension list; empty allows any name.
func NewFileHandler(store storage.Store, sessionMgr SessionManager, uploadMgr *upload.Manager, allowedTypes string) FileHandler {
	return &FileHandlerImpl{
		store:        store,
		sessionMgr:   sessionMgr,
		uploadMgr:    uploadMgr,
		allowedTypes: splitList(allowedTypes),
	}
}

// HandleUploadFile accepts a file as base64 JSON and saves it to storage
func (h *FileHandlerImpl) HandleUploadFile(c echo.Context) error {
	var req uploadFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}
	if err := h.checkType(req.Name); err != nil {
		return err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	info, err := h.store.SaveBytes(req.Name, models.FileKindCoords, decoded)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleUploadBinary accepts a raw file upload (multipart/form-data)
func (h *FileHandlerImpl) HandleUploadBinary(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	if err := h.checkType(file.Filename); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, models.FileKindCoords, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleUploadCompressed accepts a gzip-compressed file (multipart field "file")
// and decompresses it in the background. Poll the returned job for the stored file.
func (h *FileHandlerImpl) HandleUploadCompressed(c echo.Context) error {
	if h.uploadMgr == nil {
		return NewServiceUnavailableError("compressed uploads are disabled")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".gz") {
		return NewBadRequestError("expected a .gz file", nil)
	}
	if err := h.checkType(file.Filename[:len(file.Filename)-len(".gz")]); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, models.FileKindCoords, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	job := h.uploadMgr.StartJob(info)
	return c.JSON(http.StatusAccepted, job)
}

// HandleUploadJobStatus returns the state of a decompression job
func (h *FileHandlerImpl) HandleUploadJobStatus(c echo.Context) error {
	id := c.Param("jobId")
	if h.uploadMgr == nil {
		return NewNotFoundError("upload job", id)
	}
	job, ok := h.uploadMgr.GetJob(id)
	if !ok {
		return NewNotFoundError("upload job", id)
	}
	return c.JSON(http.StatusOK, job)
}

// HandleGetRecentFiles returns the most recently uploaded coordinate files
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	files, err := h.store.List(models.FileKindCoords, 20)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes a file and every conversion of it
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	if h.sessionMgr != nil {
		h.sessionMgr.DeleteSessionsForFile(id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile updates the name of a file
func (h *FileHandlerImpl) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renameFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.Name == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

func (h *FileHandlerImpl) checkType(name string) error {
	if len(h.allowedTypes) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range h.allowedTypes {
		if ext == allowed {
			return nil
		}
	}
	return NewBadRequestError("file type not allowed: "+ext, nil)
}

// Request/Response types

type uploadFileRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64-encoded content
}

func (r *uploadFileRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}

type renameFileRequest struct {
	Name string `json:"name"`
}

// splitList splits a comma-separated config value into lower-cased, trimmed items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
