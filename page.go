package glubblog

import (
	"bytes"
	"context"
	"html/template"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/lemmi/glubblog/backend"
	"github.com/lemmi/glubblog/cache"
	"github.com/pkg/errors"
	"github.com/raymondbutcher/tidyhtml"
)

const (
	tmplPath = "templates"

	tmplPost     = "post"
	tmplNotFound = "notfound"
)

// Page is the data handed to the templates. Content is nil when the post
// does not exist.
type Page struct {
	Slug    string
	Meta    Meta
	Content *Entry
}

// PageRenderer renders the page of a single post.
type PageRenderer interface {
	Render(ctx context.Context, slug string) (*cache.Page, error)
}

type Pager struct {
	backend backend.Backend
	tmpl    *template.Template
	images  ImageBuilder
	unsafe  bool
}

// NewPager reads the *.tmpl files below templates/ in fs. It needs a "post"
// and a "notfound" template.
func NewPager(b backend.Backend, fs http.FileSystem, images ImageBuilder, unsafe bool) (*Pager, error) {
	p := &Pager{
		backend: b,
		images:  images,
		unsafe:  unsafe,
	}
	tmpl, err := parseTemplates(fs, template.FuncMap{
		"imageURL":     p.imageURL,
		"imageCropURL": p.imageCropURL,
	})
	if err != nil {
		return nil, err
	}
	for _, name := range []string{tmplPost, tmplNotFound} {
		if tmpl.Lookup(name) == nil {
			return nil, errors.Errorf("missing template %q", name)
		}
	}
	p.tmpl = tmpl
	return p, nil
}

// imageURL fails template execution on a broken reference, so the page is
// not generated with a missing image.
func (p *Pager) imageURL(img *backend.Image, width, height int) (string, error) {
	if img == nil {
		return "", nil
	}
	return p.images.URL(img, ImageOptions{Width: width, Height: height})
}

// imageCropURL fills width x height, keeping the hotspot in view.
func (p *Pager) imageCropURL(img *backend.Image, width, height int) (string, error) {
	if img == nil {
		return "", nil
	}
	return p.images.URL(img, ImageOptions{Width: width, Height: height, Fit: "crop"})
}

func parseTemplates(fs http.FileSystem, funcs template.FuncMap) (*template.Template, error) {
	dir, err := fs.Open(tmplPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot open directory: %q", tmplPath)
	}
	defer dir.Close()
	tmain := template.New("_").Funcs(funcs)
	fis, err := dir.Readdir(-1)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read directory: %q", tmplPath)
	}
	for _, fi := range fis {
		if !strings.HasSuffix(fi.Name(), ".tmpl") {
			continue
		}
		fpath := path.Join(tmplPath, fi.Name())
		data, err := fs.Open(fpath)
		if err != nil {
			return nil, errors.Wrapf(err, "Cannot open file: %q", fpath)
		}
		databytes, err := io.ReadAll(data)
		data.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "Cannot read file: %q", fpath)
		}

		tname := strings.TrimSuffix(fi.Name(), ".tmpl")
		_, err = tmain.New(tname).Parse(string(databytes))
		if err != nil {
			return nil, errors.Wrapf(err, "Cannot parse template: %q", fpath)
		}
	}

	return tmain, nil
}

// Render fetches the post and renders its page, or the not found page with
// status 404 when there is no such post.
func (p *Pager) Render(ctx context.Context, slug string) (*cache.Page, error) {
	post, err := p.backend.PostBySlug(ctx, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "page generation failed: %q", slug)
	}

	page := Page{Slug: slug}
	status := http.StatusOK
	name := tmplPost
	if post == nil {
		status = http.StatusNotFound
		name = tmplNotFound
		page.Meta.Title = "Post not found"
	} else {
		e := NewEntry(slug, post, p.images, p.unsafe)
		if err := e.Render(); err != nil {
			return nil, errors.Wrapf(err, "page generation failed: %q", slug)
		}
		page.Content = e
		if page.Meta, err = e.Meta(); err != nil {
			return nil, errors.Wrapf(err, "page generation failed: %q", slug)
		}
	}

	buf := bytes.Buffer{}
	if err := p.tmpl.ExecuteTemplate(&buf, name, page); err != nil {
		return nil, errors.Wrapf(err, "template execution failed: %q\n%s", slug, p.tmpl.DefinedTemplates())
	}
	tbuf := bytes.Buffer{}
	if err := tidyhtml.Copy(&tbuf, &buf); err != nil {
		return nil, errors.Wrapf(err, "tidyhtml failed: %q", slug)
	}
	cp := &cache.Page{
		Status: status,
		Body:   tbuf.Bytes(),
	}
	if c, ok := p.backend.(backend.CIDer); ok && c.CID() != "" {
		cp.ETag = `"` + c.CID() + `"`
	}
	return cp, nil
}
