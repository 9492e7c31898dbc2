// macrocall.go parses <<macro params>> invocations and rewrites the
// parameters that managed configuration says hold references.
package relink

import (
	"regexp"
	"sort"
	"strings"
)

var (
	macroCallRe  = regexp.MustCompile(`(?s)<<([^>\s]+)\s*(.*?)>>`)
	macroParamRe = regexp.MustCompile(`(?s)\s*(?:([A-Za-z0-9\-_]+)\s*:)?(?:\s*(?:"""(.*?)"""|"([^"]*)"|'([^']*)'|\[\[([^\]]*)\]\]|([^"'\s]+)))`)
)

// macroParamQuotes maps the value groups of macroParamRe to their
// conventions, in group order.
var macroParamQuotes = []Convention{TripleDoubleQuote, DoubleQuote, SingleQuote, DoubleBracket, Bare}

// MacroParam is one actual parameter of a macro call.
type MacroParam struct {
	Name  string // empty for positional parameters
	Value string
	Quote Convention
	// Start and End bound the value including its delimiters.
	Start, End int

	newValue    string
	placeholder bool
}

// MacroCall is a parsed invocation. Offsets are absolute in the text it
// was parsed from.
type MacroCall struct {
	Name       string
	Params     []MacroParam
	Start, End int
}

// parseMacroCall reads the invocation matched by macroCallRe. loc holds
// absolute submatch offsets into text.
func parseMacroCall(text string, loc []int) *MacroCall {
	call := &MacroCall{
		Name:  text[loc[2]:loc[3]],
		Start: loc[0],
		End:   loc[1],
	}
	paramsStart := loc[4]
	for _, pm := range macroParamRe.FindAllStringSubmatchIndex(text[loc[4]:loc[5]], -1) {
		param := MacroParam{}
		if pm[2] >= 0 {
			param.Name = text[paramsStart+pm[2] : paramsStart+pm[3]]
		}
		for g, conv := range macroParamQuotes {
			s, e := pm[4+2*g], pm[5+2*g]
			if s < 0 {
				continue
			}
			delim := len(conventionDelims[conv][0])
			param.Value = text[paramsStart+s : paramsStart+e]
			param.Quote = conv
			param.Start = paramsStart + s - delim
			param.End = paramsStart + e + delim
			break
		}
		call.Params = append(call.Params, param)
	}
	return call
}

// parseMacroCallAt parses an invocation beginning exactly at pos.
func parseMacroCallAt(text string, pos int) *MacroCall {
	loc := macroCallRe.FindStringSubmatchIndex(text[pos:])
	if loc == nil || loc[0] != 0 {
		return nil
	}
	for i := range loc {
		if loc[i] >= 0 {
			loc[i] += pos
		}
	}
	return parseMacroCall(text, loc)
}

// paramIndex returns the index of the actual parameter bound to the named
// formal parameter, or -1. Positional parameters are resolved against the
// macro's definition; ErrDefinitionNotFound is returned when that is
// needed and unavailable.
func (p *Pass) paramIndex(call *MacroCall, name string) (int, error) {
	anonymous := false
	for i, param := range call.Params {
		if param.Name == name {
			return i, nil
		}
		if param.Name == "" {
			anonymous = true
		}
	}
	if !anonymous {
		return -1, nil
	}
	def, ok := p.lookup(call.Name)
	if !ok {
		return -1, ErrDefinitionNotFound
	}
	expected := def.Index(name)
	if expected < 0 {
		return -1, nil
	}
	seen := 0
	for i, param := range call.Params {
		if param.Name == "" {
			if seen == expected {
				return i, nil
			}
			seen++
		} else if other := def.Index(param.Name); other >= 0 && other < expected {
			seen++
		}
	}
	return -1, nil
}

// paramNames returns the formal name of every actual parameter, or nil
// when positional parameters exist and the definition is unknown.
func (p *Pass) paramNames(call *MacroCall) []string {
	names := make([]string, len(call.Params))
	var def FormalParams
	needDef := false
	for _, param := range call.Params {
		if param.Name == "" {
			needDef = true
			break
		}
	}
	if needDef {
		var ok bool
		if def, ok = p.lookup(call.Name); !ok {
			return nil
		}
	}
	used := make(map[string]bool)
	for i, param := range call.Params {
		if param.Name != "" {
			names[i] = param.Name
			used[param.Name] = true
		}
	}
	next := 0
	for i, param := range call.Params {
		if param.Name != "" {
			continue
		}
		for next < len(def) && used[def[next].Name] {
			next++
		}
		if next < len(def) {
			names[i] = def[next].Name
			next++
		}
	}
	return names
}

// relinkMacroInvocation rewrites the managed parameters of call. It
// returns the modified call, or nil when nothing changed, and a container
// of per-parameter entries, or nil when there are none.
func (p *Pass) relinkMacroInvocation(call *MacroCall, mayUsePlaceholders bool) (*MacroCall, *Container) {
	managed := p.settings.Macros[call.Name]
	if len(managed) == 0 {
		return nil, nil
	}
	mentioned := false
	for _, param := range call.Params {
		if strings.Contains(param.Value, p.From) {
			mentioned = true
			break
		}
	}
	if !mentioned {
		return nil, nil
	}

	c := &Container{Construct: "macrocall"}
	out := &MacroCall{Name: call.Name, Start: call.Start, End: call.End}
	out.Params = append(out.Params, call.Params...)
	modified := false

	names := make([]string, 0, len(managed))
	for name := range managed {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		detail := "<<" + call.Name + " " + name + ">>"
		idx, err := p.paramIndex(call, name)
		if err != nil {
			c.Add(p.impossible("macrocall", detail))
			continue
		}
		if idx < 0 {
			continue
		}
		param := call.Params[idx]
		handler, ok := LookupFieldType(managed[name])
		if !ok {
			continue
		}
		res := handler(p, param.Value)
		if res.Impossible {
			c.Add(p.impossible("macrocall", detail))
		}
		if !res.Changed {
			continue
		}

		np := param
		np.Value = res.Output
		quoted, ok := MacroParamPosition.Wrap(res.Output, param.Quote)
		if ok {
			np.newValue = quoted
		} else {
			if !mayUsePlaceholders {
				c.Add(p.impossible("macrocall", detail))
				continue
			}
			ph, _ := p.placeholder(res.Output, placeholderCategory(managed[name]))
			np.newValue = "<<" + ph + ">>"
			np.placeholder = true
		}
		out.Params[idx] = np
		modified = true

		l := p.leaf("macrocall", detail)
		l.Placeholder = np.placeholder
		c.Add(l)
	}

	if c.Empty() {
		c = nil
	}
	if !modified {
		return nil, c
	}
	return out, c
}

// mustBeLongForm reports whether a placeholder reference was substituted
// into a parameter; <<m <<ph>>>> is not valid, so such calls are written
// as a $macrocall widget.
func (call *MacroCall) mustBeLongForm() bool {
	for _, param := range call.Params {
		if param.placeholder {
			return true
		}
	}
	return false
}

// renderMacroCall writes call back as text. Unchanged parameters keep their
// original spelling in the compact form.
func (p *Pass) renderMacroCall(call *MacroCall, names []string) (string, bool) {
	if call.mustBeLongForm() {
		if names == nil {
			return "", false
		}
		name, ok := AttributePosition.Wrap(call.Name, Bare)
		if !ok {
			return "", false
		}
		var sb strings.Builder
		sb.WriteString("<$macrocall $name=")
		sb.WriteString(name)
		for i, param := range call.Params {
			if names[i] == "" {
				return "", false
			}
			value := param.newValue
			if !param.placeholder {
				if value, ok = AttributePosition.Wrap(param.Value, param.Quote); !ok {
					return "", false
				}
			}
			sb.WriteString(" " + names[i] + "=" + value)
		}
		sb.WriteString("/>")
		return sb.String(), true
	}

	b := NewRebuilder(p.Text, call.Start)
	for _, param := range call.Params {
		if param.newValue != "" {
			b.Add(param.newValue, param.Start, param.End)
		}
	}
	return b.Results(call.End), true
}

func placeholderCategory(fieldType string) string {
	if fieldType == "title" {
		return ""
	}
	return fieldType
}

// relinkMacroCall is the handler for <<macro>> invocations in body text.
func relinkMacroCall(p *Pass, m *Match) (int, Entry) {
	call := parseMacroCall(p.Text, m.Index)
	if len(p.settings.Macros[call.Name]) == 0 {
		return m.End, nil
	}
	var names []string
	if p.placeholders != nil {
		names = p.paramNames(call)
	}
	out, c := p.relinkMacroInvocation(call, names != nil)
	if out == nil {
		if c == nil {
			return m.End, nil
		}
		return m.End, c
	}
	text, ok := p.renderMacroCall(out, names)
	if !ok {
		failed := &Container{Construct: "macrocall"}
		failed.Add(p.impossible("macrocall", "<<"+call.Name+">>"))
		return m.End, failed
	}
	c.Text = text
	c.Modified = true
	return m.End, c
}

// relinkAttributeMacro rewrites a macro call used as an attribute value.
// Placeholders are never available there.
func (p *Pass) relinkAttributeMacro(call *MacroCall) (string, *Container) {
	out, c := p.relinkMacroInvocation(call, false)
	if out == nil {
		return "", c
	}
	text, _ := p.renderMacroCall(out, nil)
	return text, c
}
