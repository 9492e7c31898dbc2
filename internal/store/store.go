// Package store reads and writes the documents a rename touches. A Store
// is either a directory of .tid files or the pages of a Confluence space.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/open-cli-collective/relink/pkg/relink"
)

// ErrNotFound is returned when no document has the requested title.
var ErrNotFound = errors.New("document not found")

// Document is one stored document.
type Document struct {
	Title  string
	Type   string
	Fields map[string]string
	Text   string
}

// Relink returns the view of d that a relink pass reads.
func (d *Document) Relink() relink.Document {
	return relink.Document{Title: d.Title, Type: d.Type, Fields: d.Fields, Text: d.Text}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	out := *d
	out.Fields = make(map[string]string, len(d.Fields))
	for k, v := range d.Fields {
		out.Fields[k] = v
	}
	return &out
}

// IsPlugin reports whether d is a packaged plugin, whose contents are
// never rewritten.
func (d *Document) IsPlugin() bool {
	return d.Fields["plugin-type"] != "" || strings.HasPrefix(d.Title, "$:/plugins/")
}

// Store is a collection of titled documents.
type Store interface {
	// List returns every document title, sorted.
	List(ctx context.Context) ([]string, error)
	// Get returns the document with the given title or ErrNotFound.
	Get(ctx context.Context, title string) (*Document, error)
	// Put writes doc under doc.Title, replacing any existing document.
	Put(ctx context.Context, doc *Document) error
	// Rename moves the document titled from to the title to.
	Rename(ctx context.Context, from, to string) error
}

func sortedKeys(m map[string]string) []string {
	titles := make([]string, 0, len(m))
	for t := range m {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}
