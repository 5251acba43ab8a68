package backend

// Post is the projection of a post as the page needs it.
type Post struct {
	Title   string  `json:"title"`
	Summary string  `json:"summary"`
	Image   *Image  `json:"image"`
	Content []Block `json:"content"`
	Author  *Author `json:"author"`
}

type Author struct {
	Name  string `json:"name"`
	Bio   string `json:"bio"`
	Image *Image `json:"image"`
}

// Image references an image asset. Assets are either a reference into the
// content store's image pipeline or an already resolved URL.
type Image struct {
	Asset   Asset    `json:"asset"`
	Crop    *Crop    `json:"crop,omitempty"`
	Hotspot *Hotspot `json:"hotspot,omitempty"`
	Alt     string   `json:"alt,omitempty"`
}

type Asset struct {
	Ref string `json:"_ref,omitempty"`
	URL string `json:"url,omitempty"`
}

// Crop holds the fractions cut away from each edge.
type Crop struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

type Hotspot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Block types of a rich-text document.
const (
	BlockText     = "block"
	BlockImage    = "image"
	BlockCode     = "code"
	BlockMarkdown = "markdown"
)

// Block is one entry of a Portable Text document. Which fields are set
// depends on Type.
type Block struct {
	Type string `json:"_type"`
	Key  string `json:"_key,omitempty"`

	// text blocks
	Style    string    `json:"style,omitempty"`
	Children []Span    `json:"children,omitempty"`
	MarkDefs []MarkDef `json:"markDefs,omitempty"`
	ListItem string    `json:"listItem,omitempty"`
	Level    int       `json:"level,omitempty"`

	// image blocks
	Asset   *Asset   `json:"asset,omitempty"`
	Crop    *Crop    `json:"crop,omitempty"`
	Hotspot *Hotspot `json:"hotspot,omitempty"`
	Alt     string   `json:"alt,omitempty"`
	Caption string   `json:"caption,omitempty"`

	// code blocks
	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`

	// markdown blocks
	Markdown string `json:"markdown,omitempty"`
}

// Image returns the image held by an image block.
func (b Block) Image() *Image {
	if b.Asset == nil {
		return nil
	}
	return &Image{
		Asset:   *b.Asset,
		Crop:    b.Crop,
		Hotspot: b.Hotspot,
		Alt:     b.Alt,
	}
}

type Span struct {
	Type  string   `json:"_type"`
	Key   string   `json:"_key,omitempty"`
	Text  string   `json:"text"`
	Marks []string `json:"marks,omitempty"`
}

// MarkDef is an annotation referenced from span marks by its key.
type MarkDef struct {
	Key  string `json:"_key"`
	Type string `json:"_type"`
	Href string `json:"href,omitempty"`
}
