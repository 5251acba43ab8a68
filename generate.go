package glubblog

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/lemmi/glubblog/backend"
	"github.com/pkg/errors"
)

// Generate writes <outdir>/blog/<slug>/index.html for every slug the backend
// knows of and returns the slugs written. Slugs whose post vanished between
// listing and fetching are skipped. Post directories left in outdir by an
// earlier run are removed, so the output matches the current slug list.
func Generate(ctx context.Context, b backend.Backend, pages PageRenderer, outdir string) ([]string, error) {
	slugs, err := b.Slugs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot list slugs")
	}

	var written []string
	for _, slug := range slugs {
		if !ValidSlug(slug) {
			return written, errors.Errorf("invalid slug %q", slug)
		}
		p, err := pages.Render(ctx, slug)
		if err != nil {
			return written, err
		}
		if p.Status != http.StatusOK {
			log.Printf("skipping %q: status %d", slug, p.Status)
			continue
		}

		dir := filepath.Join(outdir, "blog", slug)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return written, errors.Wrapf(err, "Cannot create directory: %q", dir)
		}
		fpath := filepath.Join(dir, "index.html")
		if err := os.WriteFile(fpath, p.Body, 0644); err != nil {
			return written, errors.Wrapf(err, "Cannot write file: %q", fpath)
		}
		written = append(written, slug)
	}
	return written, removeStale(filepath.Join(outdir, "blog"), written)
}

func removeStale(dir string, keep []string) error {
	keepSet := make(map[string]bool, len(keep))
	for _, s := range keep {
		keepSet[s] = true
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "Cannot read directory: %q", dir)
	}
	for _, e := range entries {
		if !e.IsDir() || keepSet[e.Name()] {
			continue
		}
		stale := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(stale); err != nil {
			return errors.Wrapf(err, "Cannot remove stale post: %q", stale)
		}
		log.Printf("removed stale post %q", e.Name())
	}
	return nil
}
