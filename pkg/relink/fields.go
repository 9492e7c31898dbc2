// fields.go implements the field types: how a value of each kind is
// searched for a title and rewritten.
package relink

import (
	"fmt"
	"strings"
)

// FieldResult is the outcome of relinking one typed value.
type FieldResult struct {
	Output     string
	Changed    bool
	Impossible bool
	// Entry holds nested entries for structured values, if any.
	Entry Entry
}

// FieldHandler relinks a value of one field type within a pass.
type FieldHandler func(p *Pass, value string) FieldResult

// FieldTypes maps field type names to their handlers.
// Adding a new type = adding one entry here.
var FieldTypes = map[string]FieldHandler{
	"title":    relinkTitle,
	"list":     relinkList,
	"filter":   relinkFilterValue,
	"wikitext": relinkWikitextValue,
}

// LookupFieldType returns the handler for a field type name.
// Returns ok=false if the type is not registered.
func LookupFieldType(name string) (FieldHandler, bool) {
	h, ok := FieldTypes[name]
	return h, ok
}

// RelinkField rewrites one field value of the given type outside any
// document body.
func RelinkField(fieldType, value, from, to string, opts *Options) (FieldResult, error) {
	h, ok := LookupFieldType(fieldType)
	if !ok {
		return FieldResult{Output: value}, fmt.Errorf("unknown field type %q", fieldType)
	}
	if from == "" || from == to || !strings.Contains(value, from) {
		return FieldResult{Output: value}, nil
	}
	p := newPass(nil, value, from, to, opts, false)
	return h(p, value), nil
}

func relinkTitle(p *Pass, value string) FieldResult {
	if value != p.From {
		return FieldResult{Output: value}
	}
	return FieldResult{Output: p.To, Changed: true}
}

func relinkList(p *Pass, value string) FieldResult {
	items := ParseStringList(value)
	changed := false
	for i, item := range items {
		if item == p.From {
			items[i] = p.To
			changed = true
		}
	}
	if !changed {
		return FieldResult{Output: value}
	}
	out, ok := StringifyList(items)
	if !ok {
		return FieldResult{Output: value, Impossible: true}
	}
	return FieldResult{Output: out, Changed: true}
}

func relinkFilterValue(p *Pass, value string) FieldResult {
	res, err := p.filterScanner().Relink(value, p.From, p.To)
	if err != nil {
		return FieldResult{Output: value, Impossible: true}
	}
	return FieldResult{Output: res.Output, Changed: res.Changed, Impossible: res.Impossible}
}

func relinkWikitextValue(p *Pass, value string) FieldResult {
	if !strings.Contains(value, p.From) {
		return FieldResult{Output: value}
	}
	c := Wikitext.run(p.child(Wikitext, value))
	res := FieldResult{Output: value, Impossible: c.Failed()}
	if !c.Empty() {
		res.Entry = c
	}
	if out, ok := c.Output(); ok {
		res.Output = out
		res.Changed = true
	}
	return res
}

// ParseStringList splits a title list such as `a [[b c]] d` into titles.
func ParseStringList(value string) []string {
	var items []string
	n := len(value)
	p := 0
	for p < n {
		for p < n && isSpaceByte(value[p]) {
			p++
		}
		if p >= n {
			break
		}
		if strings.HasPrefix(value[p:], "[[") {
			if end := listBracketEnd(value, p+2); end >= 0 {
				items = append(items, value[p+2:end])
				p = end + 2
				continue
			}
		}
		q := p
		for q < n && !isSpaceByte(value[q]) {
			q++
		}
		items = append(items, value[p:q])
		p = q
	}
	return items
}

// listBracketEnd finds the "]]" closing a bracketed item that starts at
// from: it must be followed by whitespace or the end of the list.
func listBracketEnd(value string, from int) int {
	for i := from; i+1 < len(value); i++ {
		if value[i] == ']' && value[i+1] == ']' && (i+2 == len(value) || isSpaceByte(value[i+2])) {
			return i
		}
	}
	return -1
}

// StringifyList joins titles into a list, bracketing those that need it.
// It returns false when a title cannot be written in a list at all.
func StringifyList(items []string) (string, bool) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" || containsSpace(item) || strings.HasPrefix(item, "[[") {
			if strings.Contains(item, "]]") {
				return "", false
			}
			parts = append(parts, "[["+item+"]]")
			continue
		}
		parts = append(parts, item)
	}
	return strings.Join(parts, " "), true
}
