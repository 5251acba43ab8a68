package glubblog

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lemmi/glubblog/cache"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRevalidate = 60 * time.Second

	refreshTimeout = 30 * time.Second
)

// Revalidator serves rendered pages from a store. Pages older than the
// interval are served once more while a fresh copy renders in the
// background.
type Revalidator struct {
	render   PageRenderer
	store    cache.Store
	interval time.Duration
	now      func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	pending map[string]bool
	wg      sync.WaitGroup
}

func NewRevalidator(render PageRenderer, store cache.Store, interval time.Duration) *Revalidator {
	if interval <= 0 {
		interval = DefaultRevalidate
	}
	return &Revalidator{
		render:   render,
		store:    store,
		interval: interval,
		now:      time.Now,
		pending:  make(map[string]bool),
	}
}

func (v *Revalidator) Interval() time.Duration {
	return v.interval
}

// Get returns the page for slug. Only a miss waits for rendering.
func (v *Revalidator) Get(ctx context.Context, slug string) (*cache.Page, error) {
	p, err := v.store.Get(ctx, slug)
	if err != nil {
		log.Printf("Cache error: %v", err)
		p = nil
	}
	if p == nil {
		if DEBUG {
			log.Printf("Cache miss for %q", slug)
		}
		return v.refresh(ctx, slug)
	}
	if v.now().Sub(p.Generated) >= v.interval {
		v.refreshBackground(slug)
	}
	return p, nil
}

// refresh renders slug and stores the result. Concurrent calls for the same
// slug share one render. The render outlives the caller that started it, so
// a cancelled request does not fail the others waiting on it; each caller
// still stops waiting when its own ctx is done.
func (v *Revalidator) refresh(ctx context.Context, slug string) (*cache.Page, error) {
	ch := v.group.DoChan(slug, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		p, err := v.render.Render(rctx, slug)
		if err != nil {
			return nil, err
		}
		p.Generated = v.now()
		if err := v.store.Set(rctx, slug, p); err != nil {
			log.Printf("Failed to cache %q: %v", slug, err)
		}
		return p, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cache.Page), nil
	}
}

func (v *Revalidator) refreshBackground(slug string) {
	v.mu.Lock()
	if v.pending[slug] {
		v.mu.Unlock()
		return
	}
	v.pending[slug] = true
	v.mu.Unlock()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		defer func() {
			v.mu.Lock()
			delete(v.pending, slug)
			v.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := v.refresh(ctx, slug); err != nil {
			log.Printf("Revalidation of %q failed, keeping stale page: %v", slug, err)
		}
	}()
}

// Invalidate drops the stored page of slug. The next request renders it
// again and waits for the result.
func (v *Revalidator) Invalidate(ctx context.Context, slug string) error {
	if err := v.store.Delete(ctx, slug); err != nil {
		return errors.Wrapf(err, "invalidating %q", slug)
	}
	return nil
}

// Prerender renders every slug up front.
func (v *Revalidator) Prerender(ctx context.Context, slugs []string) error {
	for _, slug := range slugs {
		if _, err := v.refresh(ctx, slug); err != nil {
			return errors.Wrapf(err, "prerendering %q", slug)
		}
	}
	return nil
}

// Wait blocks until background revalidations have finished.
func (v *Revalidator) Wait() {
	v.wg.Wait()
}
