// dialect.go registers the dialects by content type.
package relink

import (
	"regexp"
	"strings"
)

// HTML relinks text/html documents, including Confluence storage format.
// Attribute values are entity-decoded before comparison.
var HTML *Dialect

var cdataRule = &Rule{
	Name:    "cdata",
	Pattern: regexp.MustCompile(`<!\[CDATA\[`),
	Parse:   skipTo("]]>"),
}

// Dialects maps content types to dialects.
// Adding a new content type = adding one entry here.
var Dialects map[string]*Dialect

func init() {
	Wikitext = newWikitextDialect()
	Markdown = newMarkdownDialect()
	HTML = &Dialect{
		Name:     "html",
		Rules:    []*Rule{commentRule, cdataRule, htmlRule},
		Entities: true,
	}
	Dialects = map[string]*Dialect{
		"":                      Wikitext,
		"text/vnd.tiddlywiki":   Wikitext,
		"text/x-markdown":       Markdown,
		"text/markdown":         Markdown,
		"text/html":             HTML,
		"application/xhtml+xml": HTML,
	}
}

// LookupDialect returns the dialect for a content type, ignoring any
// parameters such as charset. Returns ok=false for types that hold no
// references.
func LookupDialect(contentType string) (*Dialect, bool) {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	d, ok := Dialects[strings.ToLower(strings.TrimSpace(contentType))]
	return d, ok
}
