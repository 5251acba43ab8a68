package sanity

const (
	slugsQuery = `*[_type=='post']{
  "slug": slug.current
}`

	postQuery = `*[_type=='post' && slug.current == $slug]{
  title,
  summary,
  image,
  content,
  author->{
    bio,
    image,
    name
  }
}[0]`
)
