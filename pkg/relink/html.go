// html.go parses element tags and relinks their managed attributes.
package relink

import (
	"html"
	"strings"
)

type attrKind int

const (
	attrString   attrKind = iota // name="value"
	attrImplicit                 // name
	attrIndirect                 // name={{reference}}
	attrFiltered                 // name={{{filter}}}
	attrMacro                    // name=<<macro ...>>
)

// tagAttribute is one attribute of a parsed tag. Value holds the decoded
// string for string attributes and the inner text for the other kinds;
// ValueStart/ValueEnd bound the value including delimiters.
type tagAttribute struct {
	Name                 string
	Kind                 attrKind
	Value                string
	Quote                Convention
	ValueStart, ValueEnd int
	Macro                *MacroCall
}

type htmlTag struct {
	Name       string
	Attributes []tagAttribute
	Start, End int
}

func isTagNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '$' || c == '.' || c == ':' || c == '_'
}

func isAttrNameByte(c byte) bool {
	return !isSpaceByte(c) && !strings.ContainsRune(`/>"'=`, rune(c))
}

func isBareValueByte(c byte) bool {
	return !isSpaceByte(c) && !strings.ContainsRune(`/<>"'=`, rune(c))
}

// parseTag reads an opening (or self-closing) tag at text[pos] == '<'.
// With entities set, string attribute values are HTML-unescaped.
func parseTag(text string, pos int, entities bool) (*htmlTag, bool) {
	n := len(text)
	if pos >= n || text[pos] != '<' {
		return nil, false
	}
	p := pos + 1
	nameStart := p
	for p < n && isTagNameByte(text[p]) {
		p++
	}
	if p == nameStart {
		return nil, false
	}
	tag := &htmlTag{Name: text[nameStart:p], Start: pos}
	if p < n && !isSpaceByte(text[p]) && text[p] != '/' && text[p] != '>' {
		return nil, false
	}

	for {
		// Skip whitespace
		for p < n && isSpaceByte(text[p]) {
			p++
		}
		if p >= n {
			return nil, false
		}
		if text[p] == '>' {
			tag.End = p + 1
			return tag, true
		}
		if strings.HasPrefix(text[p:], "/>") {
			tag.End = p + 2
			return tag, true
		}

		// Attribute name
		attrStart := p
		for p < n && isAttrNameByte(text[p]) {
			p++
		}
		if p == attrStart {
			return nil, false
		}
		attr := tagAttribute{Name: text[attrStart:p], Kind: attrImplicit}

		q := p
		for q < n && isSpaceByte(text[q]) {
			q++
		}
		if q >= n || text[q] != '=' {
			tag.Attributes = append(tag.Attributes, attr)
			continue
		}
		q++
		for q < n && isSpaceByte(text[q]) {
			q++
		}
		end, ok := parseAttributeValue(text, q, &attr, entities)
		if !ok {
			return nil, false
		}
		tag.Attributes = append(tag.Attributes, attr)
		p = end
	}
}

// parseAttributeValue reads the value beginning at text[p] into attr and
// returns the offset just past it.
func parseAttributeValue(text string, p int, attr *tagAttribute, entities bool) (int, bool) {
	n := len(text)
	if p >= n {
		return 0, false
	}
	attr.ValueStart = p
	rest := text[p:]

	delimited := func(open, close string, kind attrKind) (int, bool) {
		i := strings.Index(rest[len(open):], close)
		if i < 0 {
			return 0, false
		}
		attr.Kind = kind
		attr.Value = rest[len(open) : len(open)+i]
		attr.ValueEnd = p + len(open) + i + len(close)
		return attr.ValueEnd, true
	}

	var end int
	var ok bool
	switch {
	case strings.HasPrefix(rest, `"""`):
		attr.Quote = TripleDoubleQuote
		end, ok = delimited(`"""`, `"""`, attrString)
	case rest[0] == '"':
		attr.Quote = DoubleQuote
		end, ok = delimited(`"`, `"`, attrString)
	case rest[0] == '\'':
		attr.Quote = SingleQuote
		end, ok = delimited("'", "'", attrString)
	case strings.HasPrefix(rest, "{{{"):
		end, ok = delimited("{{{", "}}}", attrFiltered)
	case strings.HasPrefix(rest, "{{"):
		end, ok = delimited("{{", "}}", attrIndirect)
	case strings.HasPrefix(rest, "<<"):
		call := parseMacroCallAt(text, p)
		if call == nil {
			return 0, false
		}
		attr.Kind = attrMacro
		attr.Macro = call
		attr.Value = text[call.Start:call.End]
		attr.ValueEnd = call.End
		return call.End, true
	default:
		q := p
		for q < n && isBareValueByte(text[q]) {
			q++
		}
		if q == p {
			return 0, false
		}
		attr.Kind = attrString
		attr.Quote = Bare
		attr.Value = text[p:q]
		attr.ValueEnd = q
		end, ok = q, true
	}
	if ok && entities && attr.Kind == attrString {
		attr.Value = html.UnescapeString(attr.Value)
	}
	return end, ok
}

// relinkHTMLTag is the handler for element tags. Managed string attributes
// are rewritten with the attribute quoting policy; filtered, indirect and
// macro attribute values are relinked according to their own syntax.
func relinkHTMLTag(p *Pass, m *Match) (int, Entry) {
	entities := p.dialect != nil && p.dialect.Entities
	tag, ok := parseTag(p.Text, m.Start, entities)
	if !ok {
		return m.Start + 1, nil
	}
	if !entities && !strings.Contains(p.Text[tag.Start:tag.End], p.From) {
		return tag.End, nil
	}

	managed := p.settings.Attributes[tag.Name]
	c := &Container{Construct: "html"}
	b := NewRebuilder(p.Text, tag.Start)
	for _, attr := range tag.Attributes {
		detail := "<" + tag.Name + " " + attr.Name + ">"
		switch attr.Kind {
		case attrString:
			typ, ok := managed[attr.Name]
			if !ok {
				continue
			}
			handler, ok := LookupFieldType(typ)
			if !ok {
				continue
			}
			res := handler(p, attr.Value)
			if res.Impossible {
				c.Add(p.impossible("html", detail))
			}
			if !res.Changed {
				continue
			}
			value := res.Output
			if entities {
				value = html.EscapeString(value)
			}
			quoted, ok := AttributePosition.Wrap(value, attr.Quote)
			placeholder := false
			if !ok {
				ph, allowed := p.placeholder(value, "")
				if !allowed {
					c.Add(p.impossible("html", detail))
					continue
				}
				quoted = "<<" + ph + ">>"
				placeholder = true
			}
			b.Add(quoted, attr.ValueStart, attr.ValueEnd)
			l := p.leaf("html", detail)
			l.Placeholder = placeholder
			c.Add(l)

		case attrFiltered:
			res, err := p.filterScanner().Relink(attr.Value, p.From, p.To)
			if err != nil || res.Impossible {
				if strings.Contains(attr.Value, p.From) {
					c.Add(p.impossible("html", detail))
				}
			}
			if err != nil || !res.Changed {
				continue
			}
			if strings.Contains(res.Output, "}}}") || strings.HasSuffix(res.Output, "}") {
				c.Add(p.impossible("html", detail))
				continue
			}
			b.Add("{{{"+res.Output+"}}}", attr.ValueStart, attr.ValueEnd)
			c.Add(p.leaf("html", detail))

		case attrIndirect:
			ref, changed, ok := relinkReference(attr.Value, p.From, p.To)
			if !changed {
				continue
			}
			if !ok || strings.Contains(ref, "}}") {
				c.Add(p.impossible("html", detail))
				continue
			}
			b.Add("{{"+ref+"}}", attr.ValueStart, attr.ValueEnd)
			c.Add(p.leaf("html", detail))

		case attrMacro:
			text, mc := p.relinkAttributeMacro(attr.Macro)
			if mc != nil {
				c.Add(mc)
			}
			if text != "" {
				b.Add(text, attr.ValueStart, attr.ValueEnd)
			}
		}
	}

	if c.Empty() {
		return tag.End, nil
	}
	if b.Changed() {
		c.Text = b.Results(tag.End)
		c.Modified = true
	}
	return tag.End, c
}

// relinkReference rewrites the title part of a text reference such as
// "title!!field" or "title##index", preserving surrounding whitespace.
// changed reports whether the reference names from; ok is false when to
// cannot be written in a reference.
func relinkReference(ref, from, to string) (out string, changed, ok bool) {
	start := len(ref) - len(strings.TrimLeft(ref, " \t\r\n"))
	end := len(strings.TrimRight(ref, " \t\r\n"))
	if start >= end {
		return ref, false, true
	}
	inner := ref[start:end]
	title := inner
	if i := strings.Index(inner, "!!"); i >= 0 && i+2 < len(inner) {
		title = inner[:i]
	} else if i := strings.Index(inner, "##"); i >= 0 && i+2 < len(inner) {
		title = inner[:i]
	}
	if title != from {
		return ref, false, true
	}
	if !referenceTitleValid(to) {
		return ref, true, false
	}
	return ref[:start] + to + inner[len(title):] + ref[end:], true, true
}

func referenceTitleValid(title string) bool {
	return !strings.Contains(title, "!!") && !strings.Contains(title, "##") &&
		!strings.ContainsAny(title, "{}|") && strings.TrimSpace(title) == title
}
