package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/eventboard/server/internal/api/problem"
)

var errImageNotFound = errors.New("image not found")

// Images serves files from a flat directory. Only bare filenames resolve;
// directories, dotfiles and anything outside dir answer 404.
func Images(dir, env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("filename")
		if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", errImageNotFound, env)
			return
		}

		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", errImageNotFound, env)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		http.ServeFile(w, r, path)
	}
}
