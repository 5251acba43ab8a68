package backend

import (
	"context"
	"net/http"
)

// Backend is a read-only content store holding blog posts.
//
// PostBySlug returns a nil *Post and a nil error when no post carries the
// given slug.
type Backend interface {
	Slugs(ctx context.Context) ([]string, error)
	PostBySlug(ctx context.Context, slug string) (*Post, error)
}

// FileSystem is the storage a file based backend reads from.
type FileSystem interface {
	http.FileSystem
}

// CIDer is implemented by backends that can name the revision they serve.
type CIDer interface {
	CID() string
}
