package route

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"teachablecam/internal/config"
	"teachablecam/internal/logger"
	"teachablecam/internal/services/classifier"
	"teachablecam/internal/services/features"
	"teachablecam/internal/services/labels"
	"teachablecam/internal/services/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, password string) http.Handler {
	t.Helper()

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>index</html>"), 0644))

	adapter, err := classifier.Load(3, 10, features.NewPixelExtractor(8))
	require.NoError(t, err)

	log := logger.NewNop()
	hub := websocket.NewHubService(log)
	return SetupRoutes(Deps{
		Config:     &config.Config{StaticDir: static, Password: password, LogDirectory: t.TempDir()},
		Logger:     log,
		Hub:        hub,
		Controller: labels.NewController(hub, nil),
		Classifier: adapter,
	})
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSetupRoutes_OpenWithoutPassword(t *testing.T) {
	h := newRouter(t, "")

	rec := get(h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "index")

	assert.Equal(t, http.StatusOK, get(h, "/api/state").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/missing").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/api/snapshots").Code, "no snapshot routes without a database")
}

func TestSetupRoutes_ProtectedWithPassword(t *testing.T) {
	h := newRouter(t, "secret")

	assert.Equal(t, http.StatusSeeOther, get(h, "/").Code)
	assert.Equal(t, http.StatusUnauthorized, get(h, "/api/state").Code)
	assert.Equal(t, http.StatusOK, get(h, "/health").Code)
}
