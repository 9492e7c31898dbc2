// Package relink propagates a title rename through the text and fields of
// documents. A document body is scanned by the dialect matching its
// content type; every construct referring to the old title (links,
// transclusions, filters, macro parameters, element attributes) is
// rewritten to the new one, or reported when it cannot be.
package relink

import (
	"fmt"
	"strings"
)

// Document is the part of a stored document a relink pass reads.
type Document struct {
	Title  string
	Type   string
	Fields map[string]string
	Text   string
}

// DocumentResult is the outcome of relinking one document.
type DocumentResult struct {
	Title string
	// Fields holds the rewritten value of every changed field.
	Fields map[string]string
	// Text is the rewritten body, valid when TextChanged.
	Text        string
	TextChanged bool
	Entry       *Container
}

// Changed reports whether the document needs to be written back.
func (r *DocumentResult) Changed() bool {
	return r.TextChanged || len(r.Fields) > 0
}

// Relink rewrites a body of the given content type. It returns nil when
// the type holds no references or nothing refers to from.
func Relink(contentType, text, from, to string, opts *Options) *Result {
	d, ok := LookupDialect(contentType)
	if !ok {
		return nil
	}
	return d.Relink(text, from, to, opts)
}

// RelinkDocument relinks every managed field and the body of doc. It
// returns nil when nothing in the document refers to from.
func RelinkDocument(doc Document, from, to string, opts *Options) (*DocumentResult, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" || from == to {
		return nil, nil
	}
	s := opts.settings()
	res := &DocumentResult{
		Title:  doc.Title,
		Fields: make(map[string]string),
		Entry:  &Container{Construct: "document"},
	}

	for _, field := range s.FieldNames() {
		value, ok := doc.Fields[field]
		if !ok {
			continue
		}
		fr, err := RelinkField(s.Fields[field], value, from, to, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to relink field %s: %w", field, err)
		}
		if fr.Entry != nil {
			res.Entry.Add(fr.Entry)
		}
		if fr.Impossible {
			res.Entry.Add(&Leaf{Construct: "field", Detail: field, From: from, To: to, Impossible: true})
		}
		if fr.Changed {
			res.Fields[field] = fr.Output
			res.Entry.Add(&Leaf{Construct: "field", Detail: field, From: from, To: to, Text: fr.Output, Modified: true})
		}
	}

	if r := Relink(doc.Type, doc.Text, from, to, opts); r != nil {
		res.Entry.Add(r.Entry)
		if r.Changed {
			res.Text = r.Text
			res.TextChanged = true
		}
	}

	if res.Entry.Empty() {
		return nil, nil
	}
	return res, nil
}
