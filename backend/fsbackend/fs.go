// Package fsbackend serves posts from a content tree:
//
//	posts/<slug>/post.json     title, summary, image and author id
//	posts/<slug>/content.json  rich-text document (optional)
//	posts/<slug>/article.md    markdown body, used without content.json
//	authors/<id>.json          name, bio and image
package fsbackend

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"sort"

	"github.com/lemmi/glubblog/backend"
	"github.com/pkg/errors"
)

const (
	PostsDir    = "posts"
	AuthorsDir  = "authors"
	PostFile    = "post.json"
	ContentFile = "content.json"
	ArticleFile = "article.md"
)

// PostMeta is the on-disk form of post.json.
type PostMeta struct {
	Title   string         `json:"title"`
	Summary string         `json:"summary,omitempty"`
	Image   *backend.Image `json:"image,omitempty"`
	Author  string         `json:"author,omitempty"`
}

type FS struct {
	fs backend.FileSystem
}

func New(fs backend.FileSystem) FS {
	return FS{fs: fs}
}

func isNotExist(err error) bool {
	return os.IsNotExist(errors.Cause(err))
}

func (f FS) readJSON(name string, v interface{}) error {
	file, err := f.fs.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := json.NewDecoder(file).Decode(v); err != nil {
		return &os.PathError{
			Op:   "Parsing json in",
			Path: name,
			Err:  err,
		}
	}
	return nil
}

func (f FS) Slugs(ctx context.Context) ([]string, error) {
	dir, err := f.fs.Open(PostsDir)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "Cannot open directory: %q", PostsDir)
	}
	fis, err := dir.Readdir(-1)
	dir.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read directory: %q", PostsDir)
	}

	var slugs []string
	for _, fi := range fis {
		if !fi.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, err := f.fs.Open(path.Join(PostsDir, fi.Name(), PostFile))
		if err != nil {
			continue
		}
		meta.Close()
		slugs = append(slugs, fi.Name())
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (f FS) PostBySlug(ctx context.Context, slug string) (*backend.Post, error) {
	if slug == "" || slug != path.Base(path.Clean("/"+slug)) {
		return nil, nil
	}
	dir := path.Join(PostsDir, slug)

	var meta PostMeta
	if err := f.readJSON(path.Join(dir, PostFile), &meta); err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "Cannot read post %q", slug)
	}

	post := &backend.Post{
		Title:   meta.Title,
		Summary: meta.Summary,
		Image:   meta.Image,
	}

	content, err := f.content(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read content of post %q", slug)
	}
	post.Content = content

	if meta.Author != "" {
		var a backend.Author
		name := path.Join(AuthorsDir, meta.Author+".json")
		switch err := f.readJSON(name, &a); {
		case err == nil:
			post.Author = &a
		case isNotExist(err):
			// dangling reference, like a deref of a deleted document
		default:
			return nil, errors.Wrapf(err, "Cannot read author %q", meta.Author)
		}
	}

	return post, nil
}

func (f FS) content(dir string) ([]backend.Block, error) {
	var blocks []backend.Block
	err := f.readJSON(path.Join(dir, ContentFile), &blocks)
	if err == nil {
		return blocks, nil
	}
	if !isNotExist(err) {
		return nil, err
	}

	md, err := f.fs.Open(path.Join(dir, ArticleFile))
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer md.Close()
	b, err := io.ReadAll(md)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read markdown file: %q", path.Join(dir, ArticleFile))
	}
	return []backend.Block{{
		Type:     backend.BlockMarkdown,
		Markdown: string(b),
	}}, nil
}
