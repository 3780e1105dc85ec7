// Package ui embeds the browser task manager served at /.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed dist/*
var distFS embed.FS

const indexPage = "index.html"

// Handler serves the page and its assets. Extensionless paths are client-side
// routes and get index.html; a missing asset is a real 404 so a stale page
// does not silently load HTML as script.
func Handler() http.Handler {
	dist, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic(err) // embed pattern guarantees dist/
	}
	assets := http.FileServer(http.FS(dist))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" || name == indexPage || path.Ext(name) == "" {
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeFileFS(w, r, dist, indexPage)
			return
		}
		if _, err := fs.Stat(dist, name); err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		assets.ServeHTTP(w, r)
	})
}
