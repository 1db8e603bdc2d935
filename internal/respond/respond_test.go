package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteServiceUnavailable(w, "vector store down")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ErrorResponse{Error: "Service Unavailable", Code: 503, Message: "vector store down"}, body)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Enabled bool `json:"enabled"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"enabled":true}`))
	w := httptest.NewRecorder()
	require.True(t, DecodeJSON(w, r, &v))
	assert.True(t, v.Enabled)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	w = httptest.NewRecorder()
	assert.False(t, DecodeJSON(w, r, &v))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
