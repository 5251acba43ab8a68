package glubblog

import (
	"strings"
	"unicode"
)

var umlauts = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss")

func delspace(r rune) rune {
	if unicode.In(r, unicode.Latin, unicode.Digit) {
		return r
	}
	return '-'
}

// Slugify derives a slug from a title.
func Slugify(title string) string {
	s := strings.Map(delspace, umlauts.Replace(strings.ToLower(title)))
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// ValidSlug reports whether slug can be used as a single path segment.
func ValidSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." {
		return false
	}
	return !strings.ContainsAny(slug, "/\\\x00")
}
