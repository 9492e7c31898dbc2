// dispatcher.go drives a dialect's rule table over a document, handing
// each match to its rule and splicing the results back together.
package relink

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Options parameterizes relink passes.
type Options struct {
	Settings    *Settings
	Definitions DefinitionProvider
	// FromType is the content type of the renamed document, when known.
	FromType string
	Log      *zerolog.Logger
}

func (o *Options) settings() *Settings {
	if o == nil || o.Settings == nil {
		return DefaultSettings()
	}
	return o.Settings
}

func (o *Options) fromType() string {
	if o == nil {
		return ""
	}
	return o.FromType
}

func (o *Options) logger() *zerolog.Logger {
	if o == nil || o.Log == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return o.Log
}

// Match is one occurrence of a rule in the document text.
type Match struct {
	Rule  *Rule
	Start int
	End   int
	// Index holds absolute submatch offsets as returned by
	// regexp.FindStringSubmatchIndex; nil for rules using Find.
	Index []int
}

// Group returns submatch i of a pattern match, or "" when it did not take part.
func (m *Match) Group(text string, i int) string {
	if 2*i+1 >= len(m.Index) || m.Index[2*i] < 0 {
		return ""
	}
	return text[m.Index[2*i]:m.Index[2*i+1]]
}

// GroupSpan returns the offsets of submatch i, or -1, -1.
func (m *Match) GroupSpan(i int) (int, int) {
	if 2*i+1 >= len(m.Index) || m.Index[2*i] < 0 {
		return -1, -1
	}
	return m.Index[2*i], m.Index[2*i+1]
}

// Handler relinks one match and returns where scanning resumes. A nil
// entry means the construct is unaffected; an entry carrying output
// replaces text[m.Start:end].
type Handler func(p *Pass, m *Match) (end int, e Entry)

// Rule is one construct recognized by a dialect.
type Rule struct {
	Name string
	// Pattern locates the construct. LineStart restricts matches to the
	// beginning of a line.
	Pattern   *regexp.Regexp
	LineStart bool
	// Find locates the construct when a pattern cannot.
	Find func(p *Pass, pos int) *Match
	// Parse skips over a construct that is never relinked and returns its end.
	Parse func(p *Pass, m *Match) int
	// Relink rewrites the construct.
	Relink Handler
}

// Matcher yields the next construct at or after a position.
type Matcher interface {
	FindNextMatch(pos int) *Match
}

// ruleMatcher picks the earliest match among a dialect's rules, breaking
// ties by rule order. Each rule's lookahead is cached until the scan
// passes it.
type ruleMatcher struct {
	p     *Pass
	rules []*Rule
	next  []*Match
	done  []bool
}

func newRuleMatcher(p *Pass, rules []*Rule) *ruleMatcher {
	return &ruleMatcher{
		p:     p,
		rules: rules,
		next:  make([]*Match, len(rules)),
		done:  make([]bool, len(rules)),
	}
}

// FindNextMatch implements Matcher.
func (rm *ruleMatcher) FindNextMatch(pos int) *Match {
	var best *Match
	for i, r := range rm.rules {
		if rm.done[i] {
			continue
		}
		m := rm.next[i]
		if m == nil || m.Start < pos {
			m = rm.find(r, pos)
			rm.next[i] = m
			if m == nil {
				rm.done[i] = true
				continue
			}
		}
		if best == nil || m.Start < best.Start {
			best = m
		}
	}
	return best
}

func (rm *ruleMatcher) find(r *Rule, pos int) *Match {
	if r.Find != nil {
		m := r.Find(rm.p, pos)
		if m != nil {
			m.Rule = r
		}
		return m
	}
	text := rm.p.Text
	for pos <= len(text) {
		loc := r.Pattern.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			return nil
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += pos
			}
		}
		if r.LineStart && !atLineStart(text, loc[0]) {
			pos = loc[0] + 1
			continue
		}
		return &Match{Rule: r, Start: loc[0], End: loc[1], Index: loc}
	}
	return nil
}

func atLineStart(text string, i int) bool {
	return i == 0 || text[i-1] == '\n'
}

// Pass is the state of relinking one body of text for one rename.
type Pass struct {
	Text    string
	From    string
	To      string
	Options *Options
	Logger  *Logger

	dialect      *Dialect
	settings     *Settings
	operators    map[string]bool
	definitions  layered
	placeholders *Placeholders // nil when placeholders are not permitted
	codeSpans    []span
}

// span is a half-open byte range.
type span struct{ start, end int }

func newPass(d *Dialect, text, from, to string, opts *Options, placeholders bool) *Pass {
	s := opts.settings()
	p := &Pass{
		Text:      text,
		From:      from,
		To:        to,
		Options:   opts,
		Logger:    &Logger{},
		dialect:   d,
		settings:  s,
		operators: s.operatorSet(),
	}
	var parent DefinitionProvider
	if opts != nil {
		parent = opts.Definitions
	}
	p.definitions = layered{local: Definitions{}, parent: parent}
	if placeholders {
		p.placeholders = NewPlaceholders(providerKnows(parent))
	}
	return p
}

// child returns a pass over text sharing the rename and definitions but
// never permitting placeholders.
func (p *Pass) child(d *Dialect, text string) *Pass {
	return &Pass{
		Text:        text,
		From:        p.From,
		To:          p.To,
		Options:     p.Options,
		Logger:      &Logger{},
		dialect:     d,
		settings:    p.settings,
		operators:   p.operators,
		definitions: p.definitions,
	}
}

// lookup resolves a macro definition, in-document pragmas first.
func (p *Pass) lookup(name string) (FormalParams, bool) {
	return p.definitions.Lookup(name)
}

// placeholder binds value to a placeholder name when the pass allows it.
func (p *Pass) placeholder(value, category string) (string, bool) {
	if p.placeholders == nil {
		return "", false
	}
	return p.placeholders.For(value, category), true
}

func (p *Pass) filterScanner() FilterScanner {
	return FilterScanner{Operators: p.operators}
}

func (p *Pass) leaf(construct, detail string) *Leaf {
	return &Leaf{Construct: construct, Detail: detail, From: p.From, To: p.To}
}

func (p *Pass) impossible(construct, detail string) *Leaf {
	l := p.leaf(construct, detail)
	l.Impossible = true
	return l
}

// Dialect is a closed, ordered rule table for one content type.
type Dialect struct {
	Name  string
	Rules []*Rule
	// Placeholders permits placeholder definitions at the top level.
	Placeholders bool
	// Entities marks attribute values as HTML-escaped.
	Entities bool
	// prepare runs before scanning a top-level document.
	prepare func(p *Pass)
	// mentions overrides the literal pre-check for dialects that encode
	// titles.
	mentions func(text, title string) bool
}

// Result is a completed relink of one document.
type Result struct {
	Text    string
	Changed bool
	Entry   *Container
}

// Relink rewrites every reference to from in text. It returns nil when
// text has no affected construct.
func (d *Dialect) Relink(text, from, to string, opts *Options) *Result {
	if from == "" || from == to || !d.mayReference(text, from) {
		return nil
	}
	p := newPass(d, text, from, to, opts, d.Placeholders)
	if d.prepare != nil {
		d.prepare(p)
	}
	c := d.run(p)
	if c.Empty() {
		return nil
	}
	res := &Result{Entry: c}
	if out, ok := c.Output(); ok {
		res.Text = out
		res.Changed = true
	}
	return res
}

// mayReference is a cheap pre-check that text could reference title at all.
func (d *Dialect) mayReference(text, title string) bool {
	if d.mentions != nil {
		return d.mentions(text, title)
	}
	if d.Entities {
		return strings.Contains(html.UnescapeString(text), title)
	}
	return strings.Contains(text, title)
}

// run scans p.Text with the dialect's rules. The returned container holds
// the pass's log and, when anything changed, the rebuilt text.
func (d *Dialect) run(p *Pass) *Container {
	log := p.Options.logger()
	text := p.Text
	b := NewRebuilder(text, 0)
	matcher := newRuleMatcher(p, d.Rules)

	pos := 0
	for pos < len(text) {
		m := matcher.FindNextMatch(pos)
		if m == nil {
			break
		}
		end := m.End
		var e Entry
		switch {
		case m.Rule.Relink != nil:
			end, e = m.Rule.Relink(p, m)
		case m.Rule.Parse != nil:
			end = m.Rule.Parse(p, m)
		}
		if end <= m.Start || end > len(text) {
			panic(fmt.Sprintf("relink: rule %s did not advance at %d (end %d)", m.Rule.Name, m.Start, end))
		}
		if e != nil {
			log.Debug().Str("rule", m.Rule.Name).Int("start", m.Start).Int("end", end).Bool("failed", e.Failed()).Msg("relinked construct")
			p.Logger.Add(e)
			if out, ok := e.Output(); ok {
				b.Add(out, m.Start, end)
			}
		}
		pos = end
	}

	c := &Container{Construct: d.Name, Children: p.Logger.Entries()}
	if b.Changed() {
		out := b.Results(len(text))
		if p.placeholders != nil && p.placeholders.Len() > 0 {
			out = p.placeholders.Preamble() + out
		}
		c.Text = out
		c.Modified = true
	}
	return c
}
