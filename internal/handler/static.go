package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// ServeStatic handles GET /* outside the API. Existing files under
// StaticDir are served as-is; every other path gets index.html so the
// frontend can route on the client.
func (h *Handler) ServeStatic(w http.ResponseWriter, r *http.Request) {
	dir := h.Config.StaticDir
	if dir == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	// path.Clean で ".." を除去してからディレクトリ配下に限定する
	name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		http.ServeFile(w, r, name)
		return
	}

	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	http.ServeFile(w, r, index)
}
