// handlers_files_test.go - Tests for coordinate file handlers
package api

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coords-visualizer/backend/internal/models"
	"github.com/coords-visualizer/backend/internal/session"
	"github.com/coords-visualizer/backend/internal/testutil"
	"github.com/coords-visualizer/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

func TestFileHandler_HandleUploadFile(t *testing.T) {
	tests := []struct {
		name       string
		request    uploadFileRequest
		wantStatus int
		wantErr    bool
		errCode    string
	}{
		{
			name: "valid file upload",
			request: uploadFileRequest{
				Name: "coords.txt",
				Data: base64.StdEncoding.EncodeToString([]byte("A(0, 0, 0)\n")),
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "empty name",
			request: uploadFileRequest{
				Data: base64.StdEncoding.EncodeToString([]byte("content")),
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name: "empty data",
			request: uploadFileRequest{
				Name: "coords.txt",
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "VALIDATION_ERROR",
		},
		{
			name: "invalid base64",
			request: uploadFileRequest{
				Name: "coords.txt",
				Data: "not-valid-base64!!!",
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "BAD_REQUEST",
		},
		{
			name: "disallowed extension",
			request: uploadFileRequest{
				Name: "coords.exe",
				Data: base64.StdEncoding.EncodeToString([]byte("A(0, 0, 0)\n")),
			},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
			errCode:    "BAD_REQUEST",
		},
		{
			name: "extension match is case-insensitive",
			request: uploadFileRequest{
				Name: "COORDS.TXT",
				Data: base64.StdEncoding.EncodeToString([]byte("A(0, 0, 0)\n")),
			},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStorage()
			handler := NewFileHandler(store, nil, nil, ".txt, .coords")

			e := echo.New()
			body, _ := json.Marshal(tt.request)
			req := httptest.NewRequest(http.MethodPost, "/api/files/upload", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler.HandleUploadFile(c)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
					return
				}
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Errorf("expected APIError, got %T", err)
					return
				}
				if apiErr.Status != tt.wantStatus {
					t.Errorf("expected status %d, got %d", tt.wantStatus, apiErr.Status)
				}
				if apiErr.Code != tt.errCode {
					t.Errorf("expected error code %s, got %s", tt.errCode, apiErr.Code)
				}
				if store.GetFileCount() != 0 {
					t.Errorf("expected nothing stored, got %d files", store.GetFileCount())
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var response models.FileInfo
			if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
				t.Errorf("failed to unmarshal response: %v", err)
				return
			}
			if response.ID == "" {
				t.Error("expected non-empty ID in response")
			}
			if response.Kind != models.FileKindCoords {
				t.Errorf("expected kind %q, got %q", models.FileKindCoords, response.Kind)
			}
		})
	}
}

func TestFileHandler_HandleUploadBinary(t *testing.T) {
	store := testutil.NewMockStorage()
	handler := NewFileHandler(store, nil, nil, "")

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "coords.txt")
	part.Write([]byte("A(0, 0, 0)\nB(1, 0, 0)\nA-B\n"))
	writer.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload/binary", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HandleUploadBinary(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}

	var info models.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	data, err := store.GetFileData(info.ID)
	if err != nil {
		t.Fatalf("file not stored: %v", err)
	}
	if string(data) != "A(0, 0, 0)\nB(1, 0, 0)\nA-B\n" {
		t.Errorf("stored content mismatch: %q", data)
	}
}

func TestFileHandler_HandleUploadBinary_NoFile(t *testing.T) {
	handler := NewFileHandler(testutil.NewMockStorage(), nil, nil, "")

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload/binary", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.HandleUploadBinary(c)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", apiErr.Status)
	}
}

func TestFileHandler_HandleGetRecentFiles(t *testing.T) {
	store := testutil.NewMockStorage()
	store.AddFile("f1", "one.txt", []byte("A(0, 0, 0)\n"))
	store.AddFile("f2", "two.txt", []byte("B(0, 0, 0)\n"))
	if _, err := store.SaveBytes("style.yaml", models.FileKindStyle, []byte("alpha: \"0.5\"\n")); err != nil {
		t.Fatalf("failed to add style: %v", err)
	}

	handler := NewFileHandler(store, nil, nil, "")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/files/recent", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HandleGetRecentFiles(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var files []*models.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 coordinate files, got %d", len(files))
	}
	for _, f := range files {
		if f.Kind != models.FileKindCoords {
			t.Errorf("unexpected kind %q in recent files", f.Kind)
		}
	}
}

func TestFileHandler_GetRenameDelete(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		id         string
		body       string
		wantStatus int
		wantErr    bool
	}{
		{name: "get existing", method: http.MethodGet, id: "f1", wantStatus: http.StatusOK},
		{name: "get missing", method: http.MethodGet, id: "nope", wantStatus: http.StatusNotFound, wantErr: true},
		{name: "rename existing", method: http.MethodPut, id: "f1", body: `{"name":"renamed.txt"}`, wantStatus: http.StatusOK},
		{name: "rename empty name", method: http.MethodPut, id: "f1", body: `{"name":""}`, wantStatus: http.StatusBadRequest, wantErr: true},
		{name: "rename missing", method: http.MethodPut, id: "nope", body: `{"name":"x.txt"}`, wantStatus: http.StatusNotFound, wantErr: true},
		{name: "delete existing", method: http.MethodDelete, id: "f1", wantStatus: http.StatusNoContent},
		{name: "delete missing", method: http.MethodDelete, id: "nope", wantStatus: http.StatusNotFound, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStorage()
			store.AddFile("f1", "one.txt", []byte("A(0, 0, 0)\n"))
			handler := NewFileHandler(store, session.NewManager(session.Settings{}), nil, "")

			e := echo.New()
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, "/api/files/"+tt.id, bytes.NewReader([]byte(tt.body)))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tt.method, "/api/files/"+tt.id, nil)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues(tt.id)

			var err error
			switch tt.method {
			case http.MethodGet:
				err = handler.HandleGetFile(c)
			case http.MethodPut:
				err = handler.HandleRenameFile(c)
			case http.MethodDelete:
				err = handler.HandleDeleteFile(c)
			}

			if tt.wantErr {
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Fatalf("expected APIError, got %T (%v)", err, err)
				}
				if apiErr.Status != tt.wantStatus {
					t.Errorf("expected status %d, got %d", tt.wantStatus, apiErr.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestFileHandler_HandleUploadCompressed(t *testing.T) {
	store := testutil.NewMockStorageWithTempDir(t.TempDir())
	handler := NewFileHandler(store, nil, upload.NewManager(store, 0), ".txt")

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write([]byte("A(0, 0, 0)\nB(1, 0, 0)\nA-B\n"))
	zw.Close()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "coords.txt.gz")
	part.Write(gz.Bytes())
	writer.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload/gzip", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.HandleUploadCompressed(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rec.Code)
	}

	var job upload.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("failed to unmarshal job: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		req = httptest.NewRequest(http.MethodGet, "/api/files/upload/"+job.ID+"/status", nil)
		rec = httptest.NewRecorder()
		c = e.NewContext(req, rec)
		c.SetParamNames("jobId")
		c.SetParamValues(job.ID)
		if err := handler.HandleUploadJobStatus(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			t.Fatalf("failed to unmarshal job: %v", err)
		}
		if job.Status == upload.StatusComplete || job.Status == upload.StatusError {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status %s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if job.Status != upload.StatusComplete {
		t.Fatalf("expected complete, got %s (%s)", job.Status, job.Error)
	}
	data, err := store.GetFileData(job.FileInfo.ID)
	if err != nil {
		t.Fatalf("decompressed file not stored: %v", err)
	}
	if string(data) != "A(0, 0, 0)\nB(1, 0, 0)\nA-B\n" {
		t.Errorf("decompressed content mismatch: %q", data)
	}
}

func TestFileHandler_HandleUploadCompressed_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		handler    FileHandler
		fileName   string
		wantStatus int
	}{
		{
			name:       "disabled",
			handler:    NewFileHandler(testutil.NewMockStorage(), nil, nil, ""),
			fileName:   "coords.txt.gz",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "not gz",
			handler:    NewFileHandler(testutil.NewMockStorage(), nil, upload.NewManager(testutil.NewMockStorage(), 0), ""),
			fileName:   "coords.txt",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "inner type not allowed",
			handler:    NewFileHandler(testutil.NewMockStorage(), nil, upload.NewManager(testutil.NewMockStorage(), 0), ".txt"),
			fileName:   "coords.exe.gz",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := new(bytes.Buffer)
			writer := multipart.NewWriter(body)
			part, _ := writer.CreateFormFile("file", tt.fileName)
			part.Write([]byte("data"))
			writer.Close()

			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/files/upload/gzip", body)
			req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
			rec := httptest.NewRecorder()

			err := tt.handler.HandleUploadCompressed(e.NewContext(req, rec))
			apiErr, ok := err.(*APIError)
			if !ok {
				t.Fatalf("expected APIError, got %T", err)
			}
			if apiErr.Status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, apiErr.Status)
			}
		})
	}
}
