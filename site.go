package glubblog

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lemmi/compress"
	"github.com/pkg/errors"
)

var (
	DEBUG bool
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func HttpError(w http.ResponseWriter, code int, logErr error) {
	if DEBUG {
		switch err := logErr.(type) {
		case stackTracer:
			log.Print(err)
			log.Printf("%+v", err.StackTrace())
		default:
			log.Print(err)
		}
	} else {
		log.Print(logErr)
	}
	http.Error(w, http.StatusText(code), code)
}

// Site serves the blog pages and the static files of the site.
type Site struct {
	pages  *Revalidator
	static StaticHandler
	secret string
}

// NewSite serves static files from the static/ directory of fs. A non-empty
// secret enables POST /api/revalidate/{slug}?secret=..., which drops the
// cached page so a publish shows up without waiting for the interval.
func NewSite(pages *Revalidator, fs http.FileSystem, secret string) *Site {
	return &Site{
		pages:  pages,
		static: NewStaticHandler(fs),
		secret: secret,
	}
}

func (s *Site) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/blog/{slug}", s.servePost).Methods(http.MethodGet, http.MethodHead)
	if s.secret != "" {
		r.HandleFunc("/api/revalidate/{slug}", s.revalidate).Methods(http.MethodPost)
	}
	r.PathPrefix("/static/").Handler(s.static)
	r.Handle("/robots.txt", s.static.Cd("/static"))
	r.Handle("/favicon.ico", s.static.Cd("/static"))
	return r
}

// Handler is Router with gzip compression.
func (s *Site) Handler() http.Handler {
	return compress.New(s.Router())
}

func (s *Site) servePost(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	p, err := s.pages.Get(r.Context(), slug)
	if err != nil {
		HttpError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", fmt.Sprintf("s-maxage=%d, stale-while-revalidate", int(s.pages.Interval().Seconds())))
	if p.ETag != "" {
		w.Header().Set("ETag", p.ETag)
	}
	if p.Status != http.StatusOK {
		w.WriteHeader(p.Status)
		w.Write(p.Body)
		return
	}
	http.ServeContent(w, r, "", p.Generated, bytes.NewReader(p.Body))
}

func (s *Site) revalidate(w http.ResponseWriter, r *http.Request) {
	given := r.URL.Query().Get("secret")
	if subtle.ConstantTimeCompare([]byte(given), []byte(s.secret)) != 1 {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	slug := mux.Vars(r)["slug"]
	if err := s.pages.Invalidate(r.Context(), slug); err != nil {
		HttpError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Revalidated bool   `json:"revalidated"`
		Slug        string `json:"slug"`
	}{true, slug})
}
