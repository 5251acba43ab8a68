package glubblog

import (
	"github.com/lemmi/glubblog/backend"
	"github.com/pkg/errors"

	bm "github.com/microcosm-cc/bluemonday"
)

var ugcPolicy = bm.UGCPolicy()

type ContentRenderer interface {
	Render() ([]byte, error)
}

type richTextRenderer struct {
	blocks []backend.Block
	images ImageBuilder
	unsafe bool
}

// NewContentRenderer renders blocks to HTML. Unless unsafe is set the result
// is sanitized for untrusted content.
func NewContentRenderer(blocks []backend.Block, images ImageBuilder, unsafe bool) ContentRenderer {
	return richTextRenderer{
		blocks: blocks,
		images: images,
		unsafe: unsafe,
	}
}

func (r richTextRenderer) Render() ([]byte, error) {
	html, err := renderRichText(r.blocks, r.images)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot render rich text")
	}
	if !r.unsafe {
		html = ugcPolicy.SanitizeBytes(html)
	}
	return html, nil
}
