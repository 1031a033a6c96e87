package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]string{"id": "t1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"id": "t1"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, "thread not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "thread not found", body["error"])
	assert.NotContains(t, body, "data")
}

func TestFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	Failure(rec, http.StatusBadGateway, "no reply", map[string]any{"success": false})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "no reply", body["error"])
	assert.Equal(t, map[string]any{"success": false}, body["data"])
}
