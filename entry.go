package glubblog

import (
	"html/template"
	"net/url"
	"sync"

	"github.com/lemmi/glubblog/backend"
	"github.com/pkg/errors"
)

// Entry is a post prepared for the page templates. The rich-text content is
// rendered once, on the first call to Render or HTML.
type Entry struct {
	slug       string
	post       *backend.Post
	images     ImageBuilder
	once       sync.Once
	html       []byte
	err        error
	renderHTML ContentRenderer
}

func NewEntry(slug string, post *backend.Post, images ImageBuilder, unsafe bool) *Entry {
	return &Entry{
		slug:       slug,
		post:       post,
		images:     images,
		renderHTML: NewContentRenderer(post.Content, images, unsafe),
	}
}

func (e *Entry) Slug() string {
	return e.slug
}
func (e *Entry) Title() string {
	return e.post.Title
}
func (e *Entry) Summary() string {
	return e.post.Summary
}
func (e *Entry) Image() *backend.Image {
	return e.post.Image
}
func (e *Entry) Author() *backend.Author {
	return e.post.Author
}
func (e *Entry) Link() string {
	u := url.URL{Path: "/blog/" + e.slug}
	return u.EscapedPath()
}

func (e *Entry) Render() error {
	e.once.Do(func() {
		e.html, e.err = e.renderHTML.Render()
	})
	return e.err
}

func (e *Entry) HTML() template.HTML {
	if err := e.Render(); err != nil {
		return ""
	}
	return template.HTML(e.html)
}

// Meta describes the page head. A featured image that cannot be resolved
// fails like a broken image in the content does.
func (e *Entry) Meta() (Meta, error) {
	m := Meta{
		Title: e.Title(),
		Desc:  e.Summary(),
		Link:  e.Link(),
	}
	if a := e.Author(); a != nil {
		m.Author = a.Name
	}
	if img := e.Image(); img != nil {
		u, err := e.images.URL(img, ImageOptions{Width: 1200})
		if err != nil {
			return m, errors.Wrap(err, "featured image")
		}
		m.Image = u
	}
	return m, nil
}
