package glubblog

import (
	"context"
	"sort"
	"sync"

	"github.com/lemmi/glubblog/backend"
)

type fakeBackend struct {
	mu      sync.Mutex
	posts   map[string]*backend.Post
	extra   []string
	fetches map[string]int
	err     error
}

func newFakeBackend(posts map[string]*backend.Post) *fakeBackend {
	return &fakeBackend{
		posts:   posts,
		fetches: make(map[string]int),
	}
}

func (f *fakeBackend) Slugs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var slugs []string
	for s := range f.posts {
		slugs = append(slugs, s)
	}
	slugs = append(slugs, f.extra...)
	sort.Strings(slugs)
	return slugs, nil
}

func (f *fakeBackend) PostBySlug(ctx context.Context, slug string) (*backend.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[slug]++
	if f.err != nil {
		return nil, f.err
	}
	return f.posts[slug], nil
}

func (f *fakeBackend) setPost(slug string, p *backend.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[slug] = p
}

func (f *fakeBackend) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeBackend) fetchCount(slug string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[slug]
}

func helloPost() *backend.Post {
	return &backend.Post{
		Title:   "Hello world",
		Summary: "A first post",
		Image:   &backend.Image{Asset: backend.Asset{Ref: "image-abc-800x600-jpg"}},
		Content: []backend.Block{
			{Type: backend.BlockText, Style: "normal", Children: []backend.Span{{Type: "span", Text: "Paragraph text"}}},
		},
		Author: &backend.Author{
			Name:  "Jane Doe",
			Bio:   "Writes things",
			Image: &backend.Image{Asset: backend.Asset{URL: "/static/jane.png"}},
		},
	}
}

// cidBackend versions its content like the git backend does.
type cidBackend struct {
	*fakeBackend
	cid string
}

func (c cidBackend) CID() string {
	return c.cid
}
