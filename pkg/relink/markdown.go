// markdown.go defines the markdown dialect: internal links, images and
// reference definitions, with code regions located by goldmark.
package relink

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown relinks text/x-markdown documents.
var Markdown *Dialect

var (
	markdownCodeRule = &Rule{
		Name: "code",
		Find: findMarkdownCode,
	}
	markdownLinkRule = &Rule{
		Name:   "mdlink",
		Find:   findMarkdownLink,
		Relink: relinkMarkdownLink,
	}
	markdownFootnoteRule = &Rule{
		Name:      "mdfootnote",
		Pattern:   regexp.MustCompile(`[ ]{0,3}\[((?:[^\[\]\\]|\\.)*)\]:[ \t]*(?:\r?\n[ \t]*)?(\S+)`),
		LineStart: true,
		Relink:    relinkMarkdownFootnote,
	}
)

var blankLineRe = regexp.MustCompile(`\n[ \t]*\r?\n`)

func newMarkdownDialect() *Dialect {
	return &Dialect{
		Name: "markdown",
		Rules: []*Rule{
			markdownCodeRule,
			commentRule,
			markdownFootnoteRule,
			markdownLinkRule,
			filteredTranscludeRule,
			transcludeRule,
			prettyLinkRule,
			macroCallRule,
			htmlRule,
		},
		mentions: markdownMentions,
	}
}

// markdownMentions reports whether text names title literally or in a
// percent-encoded link destination.
func markdownMentions(text, title string) bool {
	if strings.Contains(text, title) {
		return true
	}
	if !strings.Contains(text, "%") {
		return false
	}
	return strings.Contains(text, EncodeMarkdownTitle(title)) ||
		strings.Contains(unescapePercent(text), title)
}

// unescapePercent decodes every well-formed %XX sequence in s and keeps
// any other '%' as is.
func unescapePercent(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				sb.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// mdParser parses markdown for code regions and link validation.
var mdParser = goldmark.New()

func parseMarkdown(src []byte) ast.Node {
	return mdParser.Parser().Parse(text.NewReader(src))
}

// markdownCodeSpans locates fenced blocks, indented blocks and code spans.
func markdownCodeSpans(src string) []span {
	source := []byte(src)
	var spans []span
	_ = ast.Walk(parseMarkdown(source), func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			if lines.Len() > 0 {
				spans = append(spans, span{lines.At(0).Start, lines.At(lines.Len() - 1).Stop})
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			start, end := -1, -1
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				t, ok := c.(*ast.Text)
				if !ok {
					continue
				}
				if start < 0 || t.Segment.Start < start {
					start = t.Segment.Start
				}
				if t.Segment.Stop > end {
					end = t.Segment.Stop
				}
			}
			if start >= 0 {
				spans = append(spans, widenCodeSpan(src, start, end))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return spans
}

// widenCodeSpan grows a code span's content range over its backtick
// fences and the single space goldmark strips inside them.
func widenCodeSpan(src string, start, end int) span {
	if start > 1 && src[start-1] == ' ' && src[start-2] == '`' {
		start--
	}
	for start > 0 && src[start-1] == '`' {
		start--
	}
	if end+1 < len(src) && src[end] == ' ' && src[end+1] == '`' {
		end++
	}
	for end < len(src) && src[end] == '`' {
		end++
	}
	return span{start, end}
}

func findMarkdownCode(p *Pass, pos int) *Match {
	if p.codeSpans == nil {
		p.codeSpans = markdownCodeSpans(p.Text)
		if p.codeSpans == nil {
			p.codeSpans = []span{}
		}
	}
	for _, s := range p.codeSpans {
		if s.start >= pos {
			return &Match{Start: s.start, End: s.end}
		}
	}
	return nil
}

// findMarkdownLink returns the next [caption](destination) or
// ![caption](destination). Index holds the match, caption and
// destination offsets.
func findMarkdownLink(p *Pass, pos int) *Match {
	src := p.Text
	for i := pos; i < len(src); {
		k := strings.IndexByte(src[i:], '[')
		if k < 0 {
			return nil
		}
		j := i + k
		i = j + 1
		if j > 0 && src[j-1] == '\\' {
			continue
		}
		start := j
		if j > pos && src[j-1] == '!' {
			start = j - 1
		}
		if loc, ok := parseMarkdownLink(src, start, j); ok {
			return &Match{Start: start, End: loc[1], Index: loc}
		}
	}
	return nil
}

// parseMarkdownLink reads a link whose caption opens at src[open].
func parseMarkdownLink(src string, start, open int) ([]int, bool) {
	n := len(src)
	capEnd, ok := markdownCaptionEnd(src, open+1)
	if !ok || capEnd+1 >= n || src[capEnd+1] != '(' {
		return nil, false
	}
	j, ok := skipLinkSpace(src, capEnd+2)
	if !ok {
		return nil, false
	}

	// Destination, with balanced parentheses
	destStart := j
	depth := 0
scan:
	for j < n && !isSpaceByte(src[j]) {
		switch src[j] {
		case '\\':
			j++
		case '(':
			depth++
		case ')':
			if depth == 0 {
				break scan
			}
			depth--
		}
		j++
	}
	if j > n {
		return nil, false
	}
	destEnd := j
	if destStart == destEnd {
		return nil, false
	}

	if j, ok = skipLinkSpace(src, j); !ok || j >= n {
		return nil, false
	}
	if src[j] != ')' {
		if j == destEnd {
			return nil, false
		}
		if j, ok = skipTooltip(src, j); !ok {
			return nil, false
		}
		if j, ok = skipLinkSpace(src, j); !ok || j >= n || src[j] != ')' {
			return nil, false
		}
	}
	return []int{start, j + 1, open + 1, capEnd, destStart, destEnd}, true
}

// markdownCaptionEnd returns the offset of the ']' closing a caption that
// begins at p. Brackets nest and a blank line ends the attempt.
func markdownCaptionEnd(src string, p int) (int, bool) {
	depth := 0
	for j := p; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return j, !blankLineRe.MatchString(src[p:j])
			}
			depth--
		}
	}
	return 0, false
}

// skipLinkSpace skips whitespace containing at most one line break.
func skipLinkSpace(src string, p int) (int, bool) {
	newlines := 0
	for p < len(src) && isSpaceByte(src[p]) {
		if src[p] == '\n' {
			newlines++
			if newlines > 1 {
				return 0, false
			}
		}
		p++
	}
	return p, true
}

// skipTooltip reads a '..', ".." or (..) link title at src[p].
func skipTooltip(src string, p int) (int, bool) {
	var closing byte
	switch src[p] {
	case '\'', '"':
		closing = src[p]
	case '(':
		closing = ')'
	default:
		return 0, false
	}
	for j := p + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case closing:
			return j + 1, true
		}
	}
	return 0, false
}

// markdownTarget extracts the title a destination refers to. Links name
// titles as #percent-encoded; images name them without the '#'.
func markdownTarget(dest string, bareAllowed, hashAllowed bool) (title, prefix string, ok bool) {
	if strings.HasPrefix(dest, "#") {
		if !hashAllowed {
			return "", "", false
		}
		prefix, dest = "#", dest[1:]
	} else if !bareAllowed {
		return "", "", false
	}
	title, err := url.PathUnescape(dest)
	if err != nil {
		return "", "", false
	}
	return title, prefix, true
}

const markdownSafe = "-_.!~*'#/:@;=+$,?"

// EncodeMarkdownTitle percent-encodes a title for use as a link
// destination. A '(' stays literal when a later ')' closes it, one level
// deep; any other parenthesis is encoded so the link stays balanced.
func EncodeMarkdownTitle(title string) string {
	var sb strings.Builder
	const hex = "0123456789ABCDEF"
	open := false
	for i := 0; i < len(title); i++ {
		c := title[i]
		switch {
		case c == '(' && !open && strings.IndexByte(title[i+1:], ')') >= 0:
			open = true
			sb.WriteByte(c)
			continue
		case c == ')' && open:
			open = false
			sb.WriteByte(c)
			continue
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c != '(' && c != ')' && strings.IndexByte(markdownSafe, c) >= 0:
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&15])
	}
	return sb.String()
}

// markdownDestinationValid re-parses a link with goldmark and checks the
// destination survives unchanged.
func markdownDestinationValid(dest string, image bool) bool {
	src := "[x](" + dest + ")"
	if image {
		src = "!" + src
	}
	found := false
	_ = ast.Walk(parseMarkdown([]byte(src)), func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch l := n.(type) {
		case *ast.Link:
			found = !image && string(l.Destination) == dest
			return ast.WalkStop, nil
		case *ast.Image:
			found = image && string(l.Destination) == dest
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

// captionValid reports whether a rewritten caption can still sit between
// the link's brackets.
func captionValid(caption string) bool {
	end, ok := markdownCaptionEnd(caption+"]", 0)
	return ok && end == len(caption)
}

func relinkMarkdownLink(p *Pass, m *Match) (int, Entry) {
	image := p.Text[m.Start] == '!'
	capStart, capEnd := m.Index[2], m.Index[3]
	destStart, destEnd := m.Index[4], m.Index[5]
	detail := "link"
	if image {
		detail = "image"
	}

	c := &Container{Construct: "mdlink"}
	b := NewRebuilder(p.Text, m.Start)

	if caption := p.Text[capStart:capEnd]; !image && strings.Contains(caption, p.From) {
		inner := p.dialect.run(p.child(p.dialect, caption))
		for _, e := range inner.Children {
			c.Add(e)
		}
		if out, ok := inner.Output(); ok {
			if captionValid(out) {
				b.Add(out, capStart, capEnd)
			} else {
				c.Add(p.impossible("mdlink", "caption"))
			}
		}
	}

	dest := p.Text[destStart:destEnd]
	if title, prefix, ok := markdownTarget(dest, image, !image); ok && title == p.From {
		encoded := prefix + EncodeMarkdownTitle(p.To)
		if markdownDestinationValid(encoded, image) {
			b.Add(encoded, destStart, destEnd)
			c.Add(p.leaf("mdlink", detail))
		} else {
			c.Add(p.impossible("mdlink", detail))
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

func relinkMarkdownFootnote(p *Pass, m *Match) (int, Entry) {
	label := m.Group(p.Text, 1)
	if strings.HasPrefix(label, "^") || blankLineRe.MatchString(label) {
		return m.End, nil
	}
	destStart, destEnd := m.GroupSpan(2)
	image := strings.HasPrefix(p.Options.fromType(), "image/")
	title, prefix, ok := markdownTarget(p.Text[destStart:destEnd], image, true)
	if !ok || title != p.From {
		return m.End, nil
	}
	encoded := prefix + EncodeMarkdownTitle(p.To)
	l := p.leaf("mdfootnote", "")
	if !markdownDestinationValid(encoded, false) {
		l.Impossible = true
		return m.End, l
	}
	b := NewRebuilder(p.Text, m.Start)
	b.Add(encoded, destStart, destEnd)
	l.Text = b.Results(m.End)
	l.Modified = true
	return m.End, l
}
