package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegcard-arep/arep-microservicios/pkg/config"
)

func writeBundle(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestStaticServe(t *testing.T) {
	t.Run("unknown API paths get 404, never the frontend", func(t *testing.T) {
		handler := NewStaticHandler(&config.ServerConfig{
			Environment: "production",
			StaticDir:   t.TempDir(),
		})

		w := httptest.NewRecorder()
		handler.Serve(w, httptest.NewRequest("GET", "/api/does/not/exist", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("development redirects to the dev server", func(t *testing.T) {
		handler := NewStaticHandler(&config.ServerConfig{
			Environment: "development",
			DevAppURL:   "http://localhost:5173",
		})

		w := httptest.NewRecorder()
		handler.Serve(w, httptest.NewRequest("GET", "/profile/ada_l", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "http://localhost:5173/profile/ada_l", w.Header().Get("Location"))
	})

	t.Run("production serves existing assets", func(t *testing.T) {
		dir := t.TempDir()
		writeBundle(t, dir, map[string]string{
			"index.html":    "<html>app</html>",
			"assets/app.js": "console.log('app')",
		})
		handler := NewStaticHandler(&config.ServerConfig{
			Environment: "production",
			StaticDir:   dir,
		})

		w := httptest.NewRecorder()
		handler.Serve(w, httptest.NewRequest("GET", "/assets/app.js", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "console.log('app')", w.Body.String())
	})

	t.Run("frontend routes fall back to index.html", func(t *testing.T) {
		dir := t.TempDir()
		writeBundle(t, dir, map[string]string{"index.html": "<html>app</html>"})
		handler := NewStaticHandler(&config.ServerConfig{
			Environment: "production",
			StaticDir:   dir,
		})

		w := httptest.NewRecorder()
		handler.Serve(w, httptest.NewRequest("GET", "/profile/ada_l", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "<html>app</html>", w.Body.String())
	})

	t.Run("missing bundle answers 500", func(t *testing.T) {
		handler := NewStaticHandler(&config.ServerConfig{
			Environment: "production",
			StaticDir:   t.TempDir(),
		})

		w := httptest.NewRecorder()
		handler.Serve(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
