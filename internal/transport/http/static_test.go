package http_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transporthttp "github.com/logan-han/sms-otp-burner/internal/transport/http"
)

func TestSPAHandler(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "static"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "static", "main.js"), []byte("console.log(1)"), 0o644))

	handler := transporthttp.SPAHandler(root)

	t.Run("serves existing assets", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/main.js", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "console.log(1)", rec.Body.String())
	})

	t.Run("falls back to index.html for client-side routes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/some/spa/route", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<html>app</html>", rec.Body.String())
	})

	t.Run("root serves index.html", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<html>app</html>", rec.Body.String())
	})
}
