package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{appErrors.NewValidation("op", "bad"), http.StatusBadRequest},
		{appErrors.NewNotFound("campaign", "1"), http.StatusNotFound},
		{appErrors.NewConfiguration("op", "missing key", nil), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestWriteErrorHidesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error","kind":"internal"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteError(rec, appErrors.NewValidation("campaign", "name is required"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"validation"`)
	assert.Contains(t, rec.Body.String(), "name is required")
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "x", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.True(t, appErrors.IsKind(DecodeJSON(req, &v), appErrors.KindValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	assert.True(t, appErrors.IsKind(DecodeJSON(req, &v), appErrors.KindValidation))
}

func TestStatusForRateLimited(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, StatusFor(appErrors.NewRateLimited("api", "slow down")))
}
