package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambience/internal/pkg/storage/local"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := local.NewLocalStorage(t.TempDir(), "http://files.local/files")
	require.NoError(t, err)
	_, err = store.Upload(context.Background(), "projects/p1/final.wav", bytes.NewReader([]byte("RIFFmixed")), "audio/wav")
	require.NoError(t, err)

	h := NewHandler(store)
	r := gin.New()
	r.GET("/files/*key", h.DownloadFile)
	r.GET("/api/v1/files/download-url", h.GetDownloadURL)
	return r
}

func get(r http.Handler, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestDownloadFile(t *testing.T) {
	r := newRouter(t)

	w := get(r, "/files/projects/p1/final.wav")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "RIFFmixed", w.Body.String())
	assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "final.wav")

	w = get(r, "/files/projects/p1/missing.wav")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(r, "/files/projects/../../etc/passwd")
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestGetDownloadURL(t *testing.T) {
	r := newRouter(t)

	w := get(r, "/api/v1/files/download-url?key=projects/p1/final.wav&expires_in=60")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data GetDownloadURLResponseData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "http://files.local/files/projects/p1/final.wav", body.Data.DownloadURL)
	assert.EqualValues(t, 9, body.Data.FileSize)

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/v1/files/download-url").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/v1/files/download-url?key=../x").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/files/download-url?key=nope.wav").Code)
}

func TestCleanKey(t *testing.T) {
	cases := map[string]struct {
		key string
		ok  bool
	}{
		"/projects/p1/a.wav": {"projects/p1/a.wav", true},
		"a.wav":              {"a.wav", true},
		"":                   {"", false},
		"/":                  {"", false},
		"a/../../b":          {"", false},
	}
	for in, want := range cases {
		got, ok := cleanKey(in)
		assert.Equal(t, want.ok, ok, in)
		assert.Equal(t, want.key, got, in)
	}
}
