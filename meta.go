package glubblog

// Meta describes a page for the document head.
type Meta struct {
	Title  string
	Desc   string
	Author string
	Image  string
	Link   string
}
