package fsbackend

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gogits/git"
	"github.com/lemmi/ghfs"
	"github.com/lemmi/glubblog/backend"
	"github.com/pkg/errors"
)

// Git serves the content tree of a branch head. The repository is reopened
// on every query so new commits show up on the next revalidation.
type Git struct {
	path   string
	branch string

	mu  sync.Mutex
	cid string
}

func NewGit(path, branch string) (*Git, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "filepath.Abs("+path+")")
	}
	if branch == "" {
		branch = "master"
	}
	return &Git{path: abs, branch: branch}, nil
}

func (g *Git) head() (FS, error) {
	repo, err := git.OpenRepository(g.path)
	if err != nil {
		return FS{}, errors.Wrap(err, "git.OpenRepository("+g.path+")")
	}
	commit, err := repo.GetCommitOfBranch(g.branch)
	if err != nil {
		return FS{}, errors.Wrapf(err, "Can not open branch %q", g.branch)
	}
	g.mu.Lock()
	g.cid = strings.Trim(commit.Id.String(), "\"")
	g.mu.Unlock()
	return New(ghfs.FromCommit(commit)), nil
}

// CID is the id of the commit read by the last query.
func (g *Git) CID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cid
}

func (g *Git) Slugs(ctx context.Context) ([]string, error) {
	fs, err := g.head()
	if err != nil {
		return nil, err
	}
	return fs.Slugs(ctx)
}

func (g *Git) PostBySlug(ctx context.Context, slug string) (*backend.Post, error) {
	fs, err := g.head()
	if err != nil {
		return nil, err
	}
	return fs.PostBySlug(ctx, slug)
}
