package glubblog

import (
	"bytes"

	bf "github.com/russross/blackfriday"
)

// ImageAltTitleCopy fills a missing image title from the alt text and the
// other way round.
type ImageAltTitleCopy struct {
	bf.Renderer
}

func (md ImageAltTitleCopy) Image(out *bytes.Buffer, link []byte, title []byte, alt []byte) {
	if len(title) == 0 {
		title = alt
	}
	if len(alt) == 0 {
		alt = title
	}
	md.Renderer.Image(out, link, title, alt)
}

func renderMarkdown(md []byte) []byte {
	return bf.Markdown(md,
		ImageAltTitleCopy{
			bf.HtmlRenderer(bf.HTML_USE_XHTML, "", ""),
		}, bf.EXTENSION_TABLES|bf.EXTENSION_FENCED_CODE|bf.EXTENSION_AUTOLINK)
}
