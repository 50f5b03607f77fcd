package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// SPAHandler serves the built single-page app from root, falling back
// to index.html for any path that doesn't match a file so client-side
// routing works on hard reloads.
func SPAHandler(root string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(root))
	index := filepath.Join(root, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		requested := filepath.Join(root, filepath.Clean("/"+r.URL.Path))
		if !strings.HasPrefix(requested, filepath.Clean(root)) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		info, err := os.Stat(requested)
		if err != nil || info.IsDir() {
			http.ServeFile(w, r, index)
			return
		}
		fs.ServeHTTP(w, r)
	}
}
