// definitions.go resolves macro names to their declared parameters.
package relink

import (
	"errors"
	"regexp"
)

// ErrDefinitionNotFound is returned when a macro's parameters are needed
// but its definition is unknown.
var ErrDefinitionNotFound = errors.New("macro definition not found")

// FormalParam is one declared macro parameter.
type FormalParam struct {
	Name    string
	Default string
}

// FormalParams lists a macro's declared parameters in order.
type FormalParams []FormalParam

// Index returns the position of the named parameter, or -1.
func (fp FormalParams) Index(name string) int {
	for i, p := range fp {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// DefinitionProvider looks up macro definitions visible to a document.
type DefinitionProvider interface {
	Lookup(name string) (FormalParams, bool)
}

// Definitions is a map-backed DefinitionProvider.
type Definitions map[string]FormalParams

// Lookup implements DefinitionProvider.
func (d Definitions) Lookup(name string) (FormalParams, bool) {
	params, ok := d[name]
	return params, ok
}

// NewDefinitions builds Definitions from parameter names only.
func NewDefinitions(names map[string][]string) Definitions {
	defs := make(Definitions, len(names))
	for macro, params := range names {
		fp := make(FormalParams, 0, len(params))
		for _, p := range params {
			fp = append(fp, FormalParam{Name: p})
		}
		defs[macro] = fp
	}
	return defs
}

// layered consults local definitions before its parent.
type layered struct {
	local  Definitions
	parent DefinitionProvider
}

func (l layered) Lookup(name string) (FormalParams, bool) {
	if params, ok := l.local[name]; ok {
		return params, true
	}
	if l.parent == nil {
		return nil, false
	}
	return l.parent.Lookup(name)
}

var (
	defineRe      = regexp.MustCompile(`(?m)^[ \t]*\\define[ \t]+([^(\s]+)\(\s*([^)]*)\)`)
	formalParamRe = regexp.MustCompile(`\s*([A-Za-z0-9\-_]+)(?:\s*:\s*(?:"""([\s\S]*?)"""|"([^"]*)"|'([^']*)'|\[\[([^\]]*)\]\]|([^"'\s,]+)))?\s*,?`)
)

// ParseDefinitions collects the \define pragmas of a wikitext document.
func ParseDefinitions(text string) Definitions {
	defs := make(Definitions)
	for _, m := range defineRe.FindAllStringSubmatch(text, -1) {
		defs[m[1]] = parseFormalParams(m[2])
	}
	return defs
}

func parseFormalParams(src string) FormalParams {
	params := FormalParams{}
	for _, m := range formalParamRe.FindAllStringSubmatch(src, -1) {
		p := FormalParam{Name: m[1]}
		for _, v := range m[2:] {
			if v != "" {
				p.Default = v
				break
			}
		}
		params = append(params, p)
	}
	return params
}

// providerKnows adapts a provider into a name-taken predicate.
func providerKnows(dp DefinitionProvider) func(string) bool {
	if dp == nil {
		return nil
	}
	return func(name string) bool {
		_, ok := dp.Lookup(name)
		return ok
	}
}
