// wikitext.go defines the wikitext dialect: its rule table and the
// handlers for links, transclusions and pragmas.
package relink

import (
	"regexp"
	"strings"
)

// Wikitext relinks text/vnd.tiddlywiki documents.
var Wikitext *Dialect

var (
	macroDefRule = &Rule{
		Name:      "macrodef",
		Pattern:   regexp.MustCompile(`\\define[^\S\n]+([^(\s]+)\(\s*([^)]*)\)(?:[^\S\n]*\r?\n)?`),
		LineStart: true,
	}
	importRule = &Rule{
		Name:      "import",
		Pattern:   regexp.MustCompile(`\\import[^\S\n]+([^\n]*)`),
		LineStart: true,
		Relink:    relinkImport,
	}
	commentRule = &Rule{
		Name:    "comment",
		Pattern: regexp.MustCompile(`<!--`),
		Parse:   skipTo("-->"),
	}
	codeBlockRule = &Rule{
		Name:      "codeblock",
		Pattern:   regexp.MustCompile("```[\\w-]*\\r?\\n"),
		LineStart: true,
		Parse:     skipCodeBlock,
	}
	codeInlineRule = &Rule{
		Name:    "codeinline",
		Pattern: regexp.MustCompile("``?"),
		Parse:   skipCodeInline,
	}
	filteredTranscludeRule = &Rule{
		Name:    "filteredtransclude",
		Pattern: regexp.MustCompile(`\{\{\{([^|]+?)(?:\|([^|{}]+))?(?:\|\|([^|{}]+))?\}\}\}`),
		Relink:  relinkFilteredTransclude,
	}
	transcludeRule = &Rule{
		Name:    "transclude",
		Pattern: regexp.MustCompile(`\{\{([^{}|]*)(?:\|\|([^|{}]+))?\}\}`),
		Relink:  relinkTransclude,
	}
	prettyLinkRule = &Rule{
		Name:    "prettylink",
		Pattern: regexp.MustCompile(`\[\[(.*?)(?:\|(.*?))?\]\]`),
		Relink:  relinkPrettyLink,
	}
	macroCallRule = &Rule{
		Name:    "macrocall",
		Pattern: macroCallRe,
		Relink:  relinkMacroCall,
	}
	htmlRule = &Rule{
		Name:    "html",
		Pattern: regexp.MustCompile(`<[A-Za-z$]`),
		Relink:  relinkHTMLTag,
	}
)

var codeBlockEndRe = regexp.MustCompile("(?m)\\r?\\n```$")

func newWikitextDialect() *Dialect {
	return &Dialect{
		Name: "wikitext",
		Rules: []*Rule{
			macroDefRule,
			importRule,
			commentRule,
			codeBlockRule,
			codeInlineRule,
			filteredTranscludeRule,
			transcludeRule,
			prettyLinkRule,
			macroCallRule,
			htmlRule,
		},
		Placeholders: true,
		prepare:      prepareWikitext,
	}
}

// prepareWikitext registers the document's own macro definitions and
// reserves their names so placeholders never collide with them.
func prepareWikitext(p *Pass) {
	for name, params := range ParseDefinitions(p.Text) {
		p.definitions.local[name] = params
	}
	if p.placeholders != nil {
		p.placeholders.ReserveDefinitions(p.Text)
	}
}

// skipTo returns a Parse function consuming through the next terminator,
// or to the end of the text when there is none.
func skipTo(terminator string) func(p *Pass, m *Match) int {
	return func(p *Pass, m *Match) int {
		i := strings.Index(p.Text[m.End:], terminator)
		if i < 0 {
			return len(p.Text)
		}
		return m.End + i + len(terminator)
	}
}

func skipCodeBlock(p *Pass, m *Match) int {
	loc := codeBlockEndRe.FindStringIndex(p.Text[m.End:])
	if loc == nil {
		return len(p.Text)
	}
	return m.End + loc[1]
}

func skipCodeInline(p *Pass, m *Match) int {
	run := p.Text[m.Start:m.End]
	i := strings.Index(p.Text[m.End:], run)
	if i < 0 {
		return len(p.Text)
	}
	return m.End + i + len(run)
}

func relinkImport(p *Pass, m *Match) (int, Entry) {
	start, end := m.GroupSpan(1)
	filter := strings.TrimRight(p.Text[start:end], " \t\r")
	if !strings.Contains(filter, p.From) {
		return m.End, nil
	}
	res, err := p.filterScanner().Relink(filter, p.From, p.To)
	if err != nil || strings.Contains(res.Output, "\n") {
		return m.End, p.impossible("import", "")
	}
	if !res.Changed {
		if res.Impossible {
			return m.End, p.impossible("import", "")
		}
		return m.End, nil
	}
	b := NewRebuilder(p.Text, m.Start)
	b.Add(res.Output, start, start+len(filter))
	l := p.leaf("import", "")
	l.Impossible = res.Impossible
	l.Text = b.Results(m.End)
	l.Modified = true
	return m.End, l
}

// titleInTemplate rewrites a transclusion template slot.
func titleInTemplate(value, from, to string) (out string, changed, ok bool) {
	start := len(value) - len(strings.TrimLeft(value, " \t"))
	end := len(strings.TrimRight(value, " \t"))
	if start >= end || value[start:end] != from {
		return value, false, true
	}
	if strings.ContainsAny(to, "|{}") || strings.TrimSpace(to) != to {
		return value, true, false
	}
	return value[:start] + to + value[end:], true, true
}

func relinkTransclude(p *Pass, m *Match) (int, Entry) {
	refStart, refEnd := m.GroupSpan(1)
	ref, refChanged, refOK := relinkReference(p.Text[refStart:refEnd], p.From, p.To)

	tplStart, tplEnd := m.GroupSpan(2)
	var tpl string
	tplChanged, tplOK := false, true
	if tplStart >= 0 {
		tpl, tplChanged, tplOK = titleInTemplate(p.Text[tplStart:tplEnd], p.From, p.To)
	}
	if !refChanged && !tplChanged {
		return m.End, nil
	}
	if !refOK || !tplOK {
		return m.End, p.impossible("transclude", "")
	}

	b := NewRebuilder(p.Text, m.Start)
	if refChanged {
		b.Add(ref, refStart, refEnd)
	}
	if tplChanged {
		b.Add(tpl, tplStart, tplEnd)
	}
	l := p.leaf("transclude", "")
	l.Text = b.Results(m.End)
	l.Modified = true
	return m.End, l
}

func relinkFilteredTransclude(p *Pass, m *Match) (int, Entry) {
	fStart, fEnd := m.GroupSpan(1)
	filter := p.Text[fStart:fEnd]
	c := &Container{Construct: "filteredtransclude"}
	b := NewRebuilder(p.Text, m.Start)

	if strings.Contains(filter, p.From) {
		res, err := p.filterScanner().Relink(filter, p.From, p.To)
		switch {
		case err != nil:
			c.Add(p.impossible("filteredtransclude", "filter"))
		case res.Changed && (strings.Contains(res.Output, "|") || strings.Contains(res.Output, "}}}") || strings.HasSuffix(res.Output, "}")):
			c.Add(p.impossible("filteredtransclude", "filter"))
		default:
			if res.Impossible {
				c.Add(p.impossible("filteredtransclude", "filter"))
			}
			if res.Changed {
				b.Add(res.Output, fStart, fEnd)
				c.Add(p.leaf("filteredtransclude", "filter"))
			}
		}
	}

	if tStart, tEnd := m.GroupSpan(3); tStart >= 0 {
		tpl, changed, ok := titleInTemplate(p.Text[tStart:tEnd], p.From, p.To)
		switch {
		case changed && !ok:
			c.Add(p.impossible("filteredtransclude", "template"))
		case changed:
			b.Add(tpl, tStart, tEnd)
			c.Add(p.leaf("filteredtransclude", "template"))
		}
	}

	if c.Empty() {
		return m.End, nil
	}
	if b.Changed() {
		c.Text = b.Results(m.End)
		c.Modified = true
	}
	return m.End, c
}

// prettyLinkValid reports whether title can be written as a pretty link
// target.
func prettyLinkValid(title string, captioned bool) bool {
	if strings.Contains(title, "]]") || strings.HasSuffix(title, "]") || strings.Contains(title, "\n") {
		return false
	}
	if !captioned && strings.Contains(title, "|") {
		return false
	}
	return strings.TrimSpace(title) == title && title != ""
}

func relinkPrettyLink(p *Pass, m *Match) (int, Entry) {
	captioned := m.Index[4] >= 0
	group := 1
	if captioned {
		group = 2
	}
	tStart, tEnd := m.GroupSpan(group)
	target := p.Text[tStart:tEnd]
	lead := len(target) - len(strings.TrimLeft(target, " \t"))
	trimmed := strings.TrimSpace(target)
	if trimmed != p.From {
		return m.End, nil
	}

	l := p.leaf("prettylink", "")
	if prettyLinkValid(p.To, captioned) {
		b := NewRebuilder(p.Text, m.Start)
		b.Add(p.To, tStart+lead, tStart+lead+len(trimmed))
		l.Text = b.Results(m.End)
		l.Modified = true
		return m.End, l
	}

	// The new title does not fit in brackets; fall back to a link widget
	to, ok := AttributePosition.Wrap(p.To, DoubleQuote)
	if !ok {
		ph, allowed := p.placeholder(p.To, "")
		if !allowed {
			l.Impossible = true
			return m.End, l
		}
		to = "<<" + ph + ">>"
		l.Placeholder = true
	}
	if captioned {
		l.Text = "<$link to=" + to + ">" + m.Group(p.Text, 1) + "</$link>"
	} else {
		l.Text = "<$link to=" + to + "/>"
	}
	l.Modified = true
	return m.End, l
}
