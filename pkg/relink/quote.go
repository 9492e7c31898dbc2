// quote.go defines the quoting conventions a value may be written in and
// the positions (attribute, filter operand, macro parameter) that accept them.
package relink

import (
	"strings"
	"unicode"
)

// Convention is one way of delimiting a value.
type Convention int

const (
	Bare              Convention = iota // value
	SingleQuote                         // 'value'
	DoubleQuote                         // "value"
	TripleDoubleQuote                   // """value"""
	DoubleBracket                       // [[value]]
)

var conventionDelims = map[Convention][2]string{
	Bare:              {"", ""},
	SingleQuote:       {"'", "'"},
	DoubleQuote:       {`"`, `"`},
	TripleDoubleQuote: {`"""`, `"""`},
	DoubleBracket:     {"[[", "]]"},
}

// String returns a short human name for the convention.
func (c Convention) String() string {
	switch c {
	case Bare:
		return "bare"
	case SingleQuote:
		return "single"
	case DoubleQuote:
		return "double"
	case TripleDoubleQuote:
		return "triple"
	case DoubleBracket:
		return "brackets"
	}
	return "unknown"
}

// Enclose delimits value with the convention without checking validity.
func (c Convention) Enclose(value string) string {
	d := conventionDelims[c]
	return d[0] + value + d[1]
}

// Valid reports whether value can be written with the convention without
// terminating early.
func (c Convention) Valid(value string) bool {
	switch c {
	case Bare:
		return value != "" && !strings.ContainsAny(value, `/<>"'=`) && !containsSpace(value)
	case SingleQuote:
		return !strings.Contains(value, "'")
	case DoubleQuote:
		return !strings.Contains(value, `"`)
	case TripleDoubleQuote:
		return !strings.Contains(value, `"""`) && !strings.HasSuffix(value, `"`)
	case DoubleBracket:
		return !strings.Contains(value, "]]")
	}
	return false
}

// Position is a syntactic slot and the conventions it accepts, in order
// of preference.
type Position struct {
	Name        string
	Conventions []Convention
	// BareWord, when set, replaces the generic bare rule.
	BareWord func(value string) bool
	// Strict, when set, may reject values the generic rules accept.
	Strict func(c Convention, value string) bool
}

// AttributePosition is a wikitext/HTML attribute value.
var AttributePosition = Position{
	Name:        "attribute",
	Conventions: []Convention{Bare, SingleQuote, DoubleQuote, TripleDoubleQuote},
}

// FilterPosition is a standalone filter run operand.
var FilterPosition = Position{
	Name:        "filter",
	Conventions: []Convention{Bare, SingleQuote, DoubleQuote, DoubleBracket},
	BareWord:    filterWord,
	Strict: func(c Convention, value string) bool {
		if c == DoubleBracket {
			return !strings.Contains(value, "]")
		}
		return true
	},
}

// filterWord reports whether value reads back as a single filter word:
// no whitespace or brackets, and no leading quote or run prefix.
func filterWord(value string) bool {
	if value == "" || containsSpace(value) || strings.ContainsAny(value, "[]") {
		return false
	}
	switch value[0] {
	case '\'', '"', '+', '-':
		return false
	}
	return true
}

// MacroParamPosition is a parameter value inside a <<macro ...>> call.
var MacroParamPosition = Position{
	Name:        "macro parameter",
	Conventions: []Convention{Bare, SingleQuote, DoubleQuote, DoubleBracket, TripleDoubleQuote},
	Strict: func(c Convention, value string) bool {
		switch c {
		case Bare:
			return !strings.ContainsAny(value, ">:")
		case DoubleBracket:
			return !strings.Contains(value, "]")
		}
		return true
	},
}

// Accepts reports whether the position lists the convention.
func (p Position) Accepts(c Convention) bool {
	for _, have := range p.Conventions {
		if have == c {
			return true
		}
	}
	return false
}

// Valid reports whether value may be written at this position with c.
func (p Position) Valid(c Convention, value string) bool {
	if !p.Accepts(c) {
		return false
	}
	if c == Bare && p.BareWord != nil {
		return p.BareWord(value)
	}
	if !c.Valid(value) {
		return false
	}
	if p.Strict != nil {
		return p.Strict(c, value)
	}
	return true
}

// Wrap delimits value with the preferred convention when that is valid at
// the position, else with the first valid convention in preference order.
// It returns false when no accepted convention can hold the value.
func (p Position) Wrap(value string, preferred Convention) (string, bool) {
	if p.Valid(preferred, value) {
		return preferred.Enclose(value), true
	}
	for _, c := range p.Conventions {
		if p.Valid(c, value) {
			return c.Enclose(value), true
		}
	}
	return "", false
}

func containsSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}
