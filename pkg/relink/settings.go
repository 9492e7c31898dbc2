// settings.go defines which fields, filter operators, macro parameters and
// element attributes hold references that follow a rename.
package relink

import (
	"fmt"
	"sort"
)

// Settings is the managed configuration shared read-only by every pass.
type Settings struct {
	Fields     map[string]string            `yaml:"fields" json:"fields"`         // field -> type
	Operators  []string                     `yaml:"operators" json:"operators"`   // filter operators taking a title
	Macros     map[string]map[string]string `yaml:"macros" json:"macros"`         // macro -> parameter -> type
	Attributes map[string]map[string]string `yaml:"attributes" json:"attributes"` // element -> attribute -> type
}

// DefaultSettings returns the built-in managed configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Fields: map[string]string{
			"tags": "list",
			"list": "list",
		},
		Operators: []string{"title", "tag", "list", "tagging", "listed", "backlinks"},
		Macros: map[string]map[string]string{
			"colour-picker":            {"actions": "wikitext"},
			"list-links":               {"filter": "filter"},
			"tabs":                     {"tabsList": "filter", "default": "title", "template": "title"},
			"tag":                      {"tag": "title"},
			"tag-pill":                 {"tag": "title"},
			"toc":                      {"tag": "title"},
			"toc-expandable":           {"tag": "title", "exclude": "list"},
			"toc-selective-expandable": {"tag": "title", "exclude": "list"},
			"toc-tabbed-internal-nav":  {"tag": "title", "selectedTiddler": "title", "unselectedText": "wikitext", "missingText": "wikitext", "template": "title"},
		},
		Attributes: map[string]map[string]string{
			"$link":                 {"to": "title"},
			"$list":                 {"filter": "filter", "template": "title", "editTemplate": "title", "emptyMessage": "wikitext"},
			"$transclude":           {"tiddler": "title"},
			"$tiddler":              {"tiddler": "title"},
			"$view":                 {"tiddler": "title"},
			"$button":               {"to": "title", "set": "title", "actions": "wikitext"},
			"$count":                {"filter": "filter"},
			"$set":                  {"filter": "filter", "tiddler": "title"},
			"$linkcatcher":          {"to": "title"},
			"$action-navigate":      {"$to": "title"},
			"$action-deletetiddler": {"$tiddler": "title", "$filter": "filter"},
			"$action-sendmessage":   {"$param": "title"},
			"$fieldmangler":         {"tiddler": "title"},
			"$edit-text":            {"tiddler": "title"},
			"$checkbox":             {"tiddler": "title"},
			"$reveal":               {"stateTitle": "title"},
			"ri:page":               {"ri:content-title": "title"},
		},
	}
}

// Validate checks that every referenced type is a registered field type.
func (s *Settings) Validate() error {
	check := func(where, typ string) error {
		if _, ok := LookupFieldType(typ); !ok {
			return fmt.Errorf("%s: unknown field type %q", where, typ)
		}
		return nil
	}
	for field, typ := range s.Fields {
		if err := check("field "+field, typ); err != nil {
			return err
		}
	}
	for macro, params := range s.Macros {
		for param, typ := range params {
			if err := check("macro "+macro+" parameter "+param, typ); err != nil {
				return err
			}
		}
	}
	for element, attrs := range s.Attributes {
		for attr, typ := range attrs {
			if err := check("element "+element+" attribute "+attr, typ); err != nil {
				return err
			}
		}
	}
	return nil
}

// Merge overlays other onto a copy of s.
func (s *Settings) Merge(other *Settings) *Settings {
	out := &Settings{
		Fields:     make(map[string]string),
		Macros:     make(map[string]map[string]string),
		Attributes: make(map[string]map[string]string),
	}
	for _, src := range []*Settings{s, other} {
		if src == nil {
			continue
		}
		for k, v := range src.Fields {
			out.Fields[k] = v
		}
		out.Operators = appendUnique(out.Operators, src.Operators...)
		mergeNested(out.Macros, src.Macros)
		mergeNested(out.Attributes, src.Attributes)
	}
	return out
}

// FieldNames returns the managed field names in sorted order.
func (s *Settings) FieldNames() []string {
	return sortedKeys(s.Fields)
}

func (s *Settings) operatorSet() map[string]bool {
	set := make(map[string]bool, len(s.Operators))
	for _, op := range s.Operators {
		set[op] = true
	}
	return set
}

func mergeNested(dst, src map[string]map[string]string) {
	for outer, inner := range src {
		if dst[outer] == nil {
			dst[outer] = make(map[string]string, len(inner))
		}
		for k, v := range inner {
			dst[outer][k] = v
		}
	}
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		dup := false
		for _, have := range list {
			if have == item {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return list
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
