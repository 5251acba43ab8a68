package glubblog

import (
	"bytes"
	"html/template"
	"log"
	"sort"
	"strings"

	"github.com/lemmi/glubblog/backend"
)

var blockStyles = map[string]string{
	"normal":     "p",
	"h1":         "h1",
	"h2":         "h2",
	"h3":         "h3",
	"h4":         "h4",
	"h5":         "h5",
	"h6":         "h6",
	"blockquote": "blockquote",
}

var decorators = map[string]string{
	"strong":         "strong",
	"em":             "em",
	"code":           "code",
	"underline":      "u",
	"strike-through": "del",
}

var listTags = map[string]string{
	"bullet": "ul",
	"number": "ol",
}

type openList struct {
	tag   string
	level int
}

type richTextWriter struct {
	buf    bytes.Buffer
	images ImageBuilder
	lists  []openList
}

// renderRichText converts a Portable Text document to HTML. The output is
// not sanitized.
func renderRichText(blocks []backend.Block, images ImageBuilder) ([]byte, error) {
	w := richTextWriter{images: images}
	for _, b := range blocks {
		if err := w.block(b); err != nil {
			return nil, err
		}
	}
	w.closeLists(0)
	return w.buf.Bytes(), nil
}

func (w *richTextWriter) block(b backend.Block) error {
	if b.Type != backend.BlockText || b.ListItem == "" {
		w.closeLists(0)
	}

	switch b.Type {
	case backend.BlockText:
		if b.ListItem != "" {
			w.listItem(b)
			return nil
		}
		tag, ok := blockStyles[b.Style]
		if !ok {
			tag = "p"
		}
		w.buf.WriteString("<" + tag + ">")
		w.spans(b)
		w.buf.WriteString("</" + tag + ">")
	case backend.BlockImage:
		return w.image(b)
	case backend.BlockCode:
		w.buf.WriteString("<pre><code")
		if b.Language != "" {
			w.buf.WriteString(` class="language-` + template.HTMLEscapeString(b.Language) + `"`)
		}
		w.buf.WriteString(">")
		template.HTMLEscape(&w.buf, []byte(b.Code))
		w.buf.WriteString("</code></pre>")
	case backend.BlockMarkdown:
		w.buf.Write(renderMarkdown([]byte(b.Markdown)))
	default:
		if DEBUG {
			log.Printf("skipping unknown block type %q (key %q)", b.Type, b.Key)
		}
	}
	return nil
}

func (w *richTextWriter) image(b backend.Block) error {
	img := b.Image()
	if img == nil {
		return nil
	}
	src, err := w.images.URL(img, ImageOptions{})
	if err != nil {
		return err
	}
	w.buf.WriteString(`<figure><img src="`)
	w.buf.WriteString(template.HTMLEscapeString(src))
	w.buf.WriteString(`" alt="`)
	w.buf.WriteString(template.HTMLEscapeString(img.Alt))
	w.buf.WriteString(`"/>`)
	if b.Caption != "" {
		w.buf.WriteString("<figcaption>")
		w.buf.WriteString(template.HTMLEscapeString(b.Caption))
		w.buf.WriteString("</figcaption>")
	}
	w.buf.WriteString("</figure>")
	return nil
}

// listItem writes b as an item of a (possibly nested) list. The item is left
// open so deeper levels nest inside it.
func (w *richTextWriter) listItem(b backend.Block) {
	level := b.Level
	if level < 1 {
		level = 1
	}
	tag, ok := listTags[b.ListItem]
	if !ok {
		tag = "ul"
	}

	w.closeLists(level)
	if n := len(w.lists); n > 0 && w.lists[n-1].level == level && w.lists[n-1].tag != tag {
		w.closeLists(level - 1)
	}

	if n := len(w.lists); n > 0 && w.lists[n-1].level == level {
		w.buf.WriteString("</li>")
	} else {
		w.buf.WriteString("<" + tag + ">")
		w.lists = append(w.lists, openList{tag: tag, level: level})
	}
	w.buf.WriteString("<li>")
	w.spans(b)
}

// closeLists closes every open list deeper than level.
func (w *richTextWriter) closeLists(level int) {
	for n := len(w.lists); n > 0 && w.lists[n-1].level > level; n = len(w.lists) {
		w.buf.WriteString("</li></" + w.lists[n-1].tag + ">")
		w.lists = w.lists[:n-1]
	}
}

// sortedMarks orders the marks of children[i] so marks that run over more of
// the following spans come first. Ties are broken by name.
func sortedMarks(children []backend.Span, i int) []string {
	marks := append([]string(nil), children[i].Marks...)
	run := make(map[string]int, len(marks))
	for _, m := range marks {
		n := 0
		for j := i; j < len(children); j++ {
			if !hasMark(children[j], m) {
				break
			}
			n++
		}
		run[m] = n
	}
	sort.SliceStable(marks, func(a, b int) bool {
		if run[marks[a]] != run[marks[b]] {
			return run[marks[a]] > run[marks[b]]
		}
		return marks[a] < marks[b]
	})
	return marks
}

func hasMark(s backend.Span, mark string) bool {
	for _, m := range s.Marks {
		if m == mark {
			return true
		}
	}
	return false
}

func (w *richTextWriter) spans(b backend.Block) {
	defs := make(map[string]backend.MarkDef, len(b.MarkDefs))
	for _, d := range b.MarkDefs {
		defs[d.Key] = d
	}

	var open []string
	for i, s := range b.Children {
		if s.Type != "" && s.Type != "span" {
			continue
		}

		var marks []string
		for _, m := range sortedMarks(b.Children, i) {
			if _, ok := decorators[m]; ok {
				marks = append(marks, m)
			} else if _, ok := defs[m]; ok {
				marks = append(marks, m)
			}
		}

		n := 0
		for n < len(open) && n < len(marks) && open[n] == marks[n] {
			n++
		}
		for j := len(open) - 1; j >= n; j-- {
			w.closeMark(open[j], defs)
		}
		open = open[:n]
		for _, m := range marks[n:] {
			w.openMark(m, defs)
			open = append(open, m)
		}

		for j, line := range strings.Split(s.Text, "\n") {
			if j > 0 {
				w.buf.WriteString("<br/>")
			}
			template.HTMLEscape(&w.buf, []byte(line))
		}
	}
	for j := len(open) - 1; j >= 0; j-- {
		w.closeMark(open[j], defs)
	}
}

func (w *richTextWriter) openMark(m string, defs map[string]backend.MarkDef) {
	if tag, ok := decorators[m]; ok {
		w.buf.WriteString("<" + tag + ">")
		return
	}
	switch d := defs[m]; d.Type {
	case "link":
		w.buf.WriteString(`<a href="` + template.HTMLEscapeString(d.Href) + `">`)
	default:
		w.buf.WriteString("<span>")
	}
}

func (w *richTextWriter) closeMark(m string, defs map[string]backend.MarkDef) {
	if tag, ok := decorators[m]; ok {
		w.buf.WriteString("</" + tag + ">")
		return
	}
	if defs[m].Type == "link" {
		w.buf.WriteString("</a>")
		return
	}
	w.buf.WriteString("</span>")
}
