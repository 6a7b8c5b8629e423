// Package web serves the assistant's browser client from the binary.
// dist/ holds a single static chat page; there is no frontend build step.
package web

import (
	"bytes"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
)

//go:embed all:dist
var distFS embed.FS

const indexPage = "index.html"

// SPAHandler serves the chat page and any static assets next to it. A path
// that names no embedded file gets the chat page, except under /api/ where
// unknown routes stay 404.
func SPAHandler() http.Handler {
	assets, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to open embedded client: " + err.Error())
	}
	index, err := fs.ReadFile(assets, indexPage)
	if err != nil {
		panic("web: embedded client has no " + indexPage + ": " + err.Error())
	}
	static := http.FileServerFS(assets)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name != "" && name != indexPage && isFile(assets, name) {
			static.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, indexPage, time.Time{}, bytes.NewReader(index))
	})
}

func isFile(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Debug("web: failed to stat embedded file", "name", name, "error", err)
		}
		return false
	}
	return !info.IsDir()
}
