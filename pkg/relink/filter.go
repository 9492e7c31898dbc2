// filter.go scans filter expressions for operands naming a title and
// rewrites them in place.
package relink

import (
	"errors"
	"strings"
)

// ErrBadFilter is returned for filter text that cannot be parsed.
var ErrBadFilter = errors.New("malformed filter")

type operandKind int

const (
	operandBare      operandKind = iota // title
	operandSingle                       // 'title'
	operandDouble                       // "title"
	operandBracketed                    // [[title]]
	operandOperator                     // [op[title]]
)

// filterOperand locates one relevant operand. start/end bound the value;
// outerStart/outerEnd include its delimiters.
type filterOperand struct {
	kind                 operandKind
	start, end           int
	outerStart, outerEnd int
}

// FilterScanner finds operands that refer to a title. An operand is
// relevant when it is a standalone run, or the operand of the title
// operator, of field:title, or of any operator in Operators.
type FilterScanner struct {
	Operators map[string]bool
}

// ScanFilter returns the offsets of every operand in filter whose text is
// title, considering only title-valued operands. Offsets of quoted
// operands point past the opening quote.
func ScanFilter(filter, title string) ([]int, error) {
	return FilterScanner{}.Scan(filter, title)
}

// Scan is ScanFilter with the scanner's operator set.
func (s FilterScanner) Scan(filter, title string) ([]int, error) {
	ops, err := s.operands(filter, title)
	if err != nil {
		return nil, err
	}
	offsets := make([]int, 0, len(ops))
	for _, op := range ops {
		offsets = append(offsets, op.start)
	}
	return offsets, nil
}

func (s FilterScanner) relevant(operator, suffix string) bool {
	return operator == "title" || (operator == "field" && suffix == "title") || s.Operators[operator]
}

func (s FilterScanner) operands(filter, title string) ([]filterOperand, error) {
	var ops []filterOperand
	n := len(filter)
	p := 0

	for p < n {
		// Skip whitespace between runs
		for p < n && isSpaceByte(filter[p]) {
			p++
		}
		if p >= n {
			break
		}

		// Run prefix
		if (filter[p] == '+' || filter[p] == '-') && p+1 < n && !isSpaceByte(filter[p+1]) && filter[p+1] != ']' {
			p++
		}

		switch filter[p] {
		case '[':
			end, err := s.scanOperation(filter, p, title, &ops)
			if err != nil {
				return nil, err
			}
			p = end
		case '"', '\'':
			quote := filter[p]
			closing := strings.IndexByte(filter[p+1:], quote)
			if closing < 0 {
				return nil, ErrBadFilter
			}
			start, end := p+1, p+1+closing
			if filter[start:end] == title {
				kind := operandDouble
				if quote == '\'' {
					kind = operandSingle
				}
				ops = append(ops, filterOperand{kind: kind, start: start, end: end, outerStart: p, outerEnd: end + 1})
			}
			p = end + 1
		default:
			q := p
			for q < n && !isSpaceByte(filter[q]) && filter[q] != '[' && filter[q] != ']' {
				q++
			}
			if q == p {
				return nil, ErrBadFilter
			}
			if filter[p:q] == title {
				ops = append(ops, filterOperand{kind: operandBare, start: p, end: q, outerStart: p, outerEnd: q})
			}
			p = q
		}
	}
	return ops, nil
}

// scanOperation reads one bracketed run starting at filter[p] == '[' and
// returns the offset just past its closing bracket.
func (s FilterScanner) scanOperation(filter string, p int, title string, ops *[]filterOperand) (int, error) {
	n := len(filter)
	runStart := p
	p++
	var found []filterOperand
	stanzas := 0
	simple := false

	for {
		negated := false
		if p < n && filter[p] == '!' {
			negated = true
			p++
		}
		rel := strings.IndexAny(filter[p:], "[{</")
		if rel < 0 {
			return 0, ErrBadFilter
		}
		bracketPos := p + rel
		rawName := filter[p:bracketPos]
		operator, suffix := rawName, ""
		if i := strings.IndexByte(rawName, ':'); i >= 0 {
			operator, suffix = rawName[:i], rawName[i+1:]
			if operator == "" {
				operator = "field"
			}
		} else if operator == "" {
			operator = "title"
		}

		p = bracketPos + 1
		var closing int
		literal := false
		switch filter[bracketPos] {
		case '[':
			literal = true
			closing = indexFrom(filter, p, ']')
		case '{':
			closing = indexFrom(filter, p, '}')
		case '<':
			closing = indexFrom(filter, p, '>')
		case '/':
			closing = regexpEnd(filter, p)
		}
		if closing < 0 {
			return 0, ErrBadFilter
		}

		if literal && filter[p:closing] == title && s.relevant(operator, suffix) {
			found = append(found, filterOperand{kind: operandOperator, start: p, end: closing})
		}
		simple = stanzas == 0 && !negated && rawName == "" && literal

		p = closing + 1
		stanzas++
		if p >= n {
			return 0, ErrBadFilter
		}
		if filter[p] == ']' {
			break
		}
		simple = false
	}
	p++

	if simple && len(found) == 1 {
		found[0].kind = operandBracketed
		found[0].outerStart = runStart
		found[0].outerEnd = p
	}
	*ops = append(*ops, found...)
	return p, nil
}

// regexpEnd returns the offset of the character closing a /regexp/ operand
// that begins at p, including an optional (flags) group.
func regexpEnd(filter string, p int) int {
	n := len(filter)
	for q := p; q < n; q++ {
		switch filter[q] {
		case '\\':
			q++
		case '/':
			if q+1 < n && filter[q+1] == '(' {
				r := q + 2
				for r < n && strings.IndexByte("mygi", filter[r]) >= 0 {
					r++
				}
				if r < n && filter[r] == ')' {
					return r
				}
			}
			return q
		}
	}
	return -1
}

// FilterRelink is the outcome of rewriting one filter.
type FilterRelink struct {
	Output     string
	Changed    bool
	Impossible bool
}

// RelinkFilter rewrites every relevant from operand in filter to to.
func RelinkFilter(filter, from, to string) (FilterRelink, error) {
	return FilterScanner{}.Relink(filter, from, to)
}

// Relink rewrites every relevant from operand in filter to to. A
// standalone [[from]] loses its brackets when they are no longer needed
// and a bareword gains them when to cannot stand bare. Operands of
// [op[...]] runs cannot hold ']' and are reported impossible.
func (s FilterScanner) Relink(filter, from, to string) (FilterRelink, error) {
	res := FilterRelink{Output: filter}
	if !strings.Contains(filter, from) {
		return res, nil
	}
	ops, err := s.operands(filter, from)
	if err != nil {
		return res, err
	}

	b := NewRebuilder(filter, 0)
	for _, op := range ops {
		text, start, end, ok := relinkOperand(filter, op, from, to)
		if !ok {
			res.Impossible = true
			continue
		}
		b.Add(text, start, end)
	}
	if b.Changed() {
		res.Output = b.Results(len(filter))
		res.Changed = true
	}
	return res, nil
}

func relinkOperand(filter string, op filterOperand, from, to string) (string, int, int, bool) {
	switch op.kind {
	case operandBare:
		if FilterPosition.Valid(Bare, to) {
			return to, op.start, op.end, true
		}
		wrapped, ok := FilterPosition.Wrap(to, DoubleBracket)
		return wrapped, op.outerStart, op.outerEnd, ok

	case operandSingle, operandDouble:
		conv := DoubleQuote
		if op.kind == operandSingle {
			conv = SingleQuote
		}
		if FilterPosition.Valid(conv, to) {
			return to, op.start, op.end, true
		}
		wrapped, ok := FilterPosition.Wrap(to, DoubleBracket)
		return wrapped, op.outerStart, op.outerEnd, ok

	case operandBracketed:
		if containsSpace(from) && !containsSpace(to) && standalone(filter, op) && FilterPosition.Valid(Bare, to) {
			return to, op.outerStart, op.outerEnd, true
		}
		if FilterPosition.Valid(DoubleBracket, to) {
			return to, op.start, op.end, true
		}
		wrapped, ok := FilterPosition.Wrap(to, SingleQuote)
		return wrapped, op.outerStart, op.outerEnd, ok
	}

	if strings.Contains(to, "]") {
		return "", 0, 0, false
	}
	return to, op.start, op.end, true
}

// standalone reports whether a bracketed run is separated from its
// neighbours by whitespace or the ends of the filter.
func standalone(filter string, op filterOperand) bool {
	before := op.outerStart == 0 || isSpaceByte(filter[op.outerStart-1])
	after := op.outerEnd == len(filter) || isSpaceByte(filter[op.outerEnd])
	return before && after
}

func isSpaceByte(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func indexFrom(s string, from int, c byte) int {
	i := strings.IndexByte(s[from:], c)
	if i < 0 {
		return -1
	}
	return from + i
}
