// placeholder.go hands out named placeholder definitions for values that
// cannot be written inline.
package relink

import (
	"fmt"
	"regexp"
	"strings"
)

// PlaceholderPrefix begins every generated placeholder name.
const PlaceholderPrefix = "relink-"

var defineNameRe = regexp.MustCompile(`(?m)^[ \t]*\\define[ \t]+([^(\s]+)\(`)

// Placeholders issues unique placeholder names for one document and
// renders the definitions that bind them.
type Placeholders struct {
	names    []string
	values   map[string]string // name -> value
	byValue  map[placeholderKey]string
	reserved map[string]bool
	known    func(name string) bool
	counters map[string]int
}

type placeholderKey struct {
	category string
	value    string
}

// NewPlaceholders returns an empty registry. known, when non-nil, reports
// names already bound elsewhere that must not be reused.
func NewPlaceholders(known func(name string) bool) *Placeholders {
	return &Placeholders{
		values:   make(map[string]string),
		byValue:  make(map[placeholderKey]string),
		reserved: make(map[string]bool),
		known:    known,
		counters: make(map[string]int),
	}
}

// Reserve marks name as taken.
func (ph *Placeholders) Reserve(name string) {
	ph.reserved[name] = true
}

// ReserveDefinitions reserves every name defined by a \define pragma in text.
func (ph *Placeholders) ReserveDefinitions(text string) {
	for _, m := range defineNameRe.FindAllStringSubmatch(text, -1) {
		ph.Reserve(m[1])
	}
}

// For returns the placeholder bound to value in category, creating one
// named relink-[category-]N when there is none yet.
func (ph *Placeholders) For(value, category string) string {
	key := placeholderKey{category: category, value: value}
	if name, ok := ph.byValue[key]; ok {
		return name
	}
	prefix := PlaceholderPrefix
	if category != "" {
		prefix += category + "-"
	}
	for {
		ph.counters[prefix]++
		name := fmt.Sprintf("%s%d", prefix, ph.counters[prefix])
		if ph.taken(name) {
			continue
		}
		ph.names = append(ph.names, name)
		ph.values[name] = value
		ph.byValue[key] = name
		return name
	}
}

func (ph *Placeholders) taken(name string) bool {
	if ph.reserved[name] {
		return true
	}
	if _, ok := ph.values[name]; ok {
		return true
	}
	return ph.known != nil && ph.known(name)
}

// Len returns the number of placeholders issued.
func (ph *Placeholders) Len() int {
	return len(ph.names)
}

// Preamble renders one definition per placeholder in creation order.
func (ph *Placeholders) Preamble() string {
	var sb strings.Builder
	for _, name := range ph.names {
		value := ph.values[name]
		if strings.Contains(value, "\n") {
			fmt.Fprintf(&sb, "\\define %s()\n%s\n\\end\n", name, value)
		} else {
			fmt.Fprintf(&sb, "\\define %s() %s\n", name, value)
		}
	}
	return sb.String()
}
