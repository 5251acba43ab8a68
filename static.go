package glubblog

import (
	"net/http"
	"path"
)

// The StaticHandler behaves like http.ServeContent without directoy listings.
// It also implements the http.Filesystem interface.
type StaticHandler struct {
	fs     http.FileSystem
	prefix string
	maxAge string
}

// Serve the file requestet by r. Error 404 on directory access.
func (sh StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f, err := sh.Open(r.URL.Path)
	if err != nil {
		http.Error(w, r.URL.Path, http.StatusNotFound)
		return
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		http.Error(w, r.URL.Path, http.StatusInternalServerError)
		return
	}
	if stat.IsDir() {
		http.Error(w, r.URL.Path, http.StatusNotFound)
		return
	}
	if sh.maxAge != "" {
		w.Header().Set("Cache-Control", "max-age="+sh.maxAge)
	}
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), f)
}

// Return a new StaticHandler with new root directory.
func (sh StaticHandler) Cd(dir string) StaticHandler {
	sh.prefix = path.Join(sh.prefix, path.Clean("/"+dir))
	return sh
}

// Implement the http.Filesystem interface.
func (sh StaticHandler) Open(name string) (http.File, error) {
	return sh.fs.Open(path.Join(sh.prefix, path.Clean("/"+name)))
}

// Serves all files from fs.
func NewStaticHandler(fs http.FileSystem) StaticHandler {
	return StaticHandler{fs: fs, prefix: "/", maxAge: "3600"}
}
