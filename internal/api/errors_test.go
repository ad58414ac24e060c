package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlerDetails(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		showDetails bool
		wantStatus  int
		wantCode    string
		wantDetails string
	}{
		{
			name:        "unknown error with details",
			err:         errors.New("disk on fire"),
			showDetails: true,
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "UNKNOWN_ERROR",
			wantDetails: "disk on fire",
		},
		{
			name:       "unknown error hidden",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "UNKNOWN_ERROR",
		},
		{
			name:       "internal error cause hidden",
			err:        NewInternalError("failed to save file", errors.New("/srv/data: permission denied")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
		{
			name:        "client error keeps details",
			err:         NewUnprocessableError("conversion failed", errors.New("line 2: malformed point definition")),
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    "CONVERSION_ERROR",
			wantDetails: "line 2: malformed point definition",
		},
		{
			name:       "echo error",
			err:        echo.ErrMethodNotAllowed,
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   "HTTP_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			NewErrorHandler(tt.showDetails)(tt.err, c)

			require.Equal(t, tt.wantStatus, rec.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantDetails, body.Details)
		})
	}
}

func TestErrorHandlerDoesNotMutateError(t *testing.T) {
	apiErr := NewInternalError("failed", errors.New("cause"))

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	NewErrorHandler(false)(apiErr, c)

	assert.Equal(t, "cause", apiErr.Details)
}
