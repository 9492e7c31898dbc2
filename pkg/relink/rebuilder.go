// rebuilder.go splices replacement text into a base string.
package relink

import (
	"fmt"
	"strings"
)

// Rebuilder accumulates replacement spans over a base string and
// reassembles it on demand. Spans must be added in increasing order and
// must not overlap; a violation is a programming error and panics.
type Rebuilder struct {
	base    string
	start   int
	index   int // end of the last added span
	out     strings.Builder
	changed bool
}

// NewRebuilder returns a Rebuilder over base beginning at start.
func NewRebuilder(base string, start int) *Rebuilder {
	return &Rebuilder{base: base, start: start, index: start}
}

// Add replaces base[start:end] with text.
func (b *Rebuilder) Add(text string, start, end int) {
	if start < b.index || end <= start || end > len(b.base) {
		panic(fmt.Sprintf("relink: rebuilder span [%d,%d) is out of order or overlaps (cursor %d, length %d)",
			start, end, b.index, len(b.base)))
	}
	b.out.WriteString(b.base[b.index:start])
	b.out.WriteString(text)
	b.index = end
	b.changed = true
}

// Changed reports whether any span was added.
func (b *Rebuilder) Changed() bool {
	return b.changed
}

// Results returns base[start:end] with every added span substituted.
func (b *Rebuilder) Results(end int) string {
	if end < b.index || end > len(b.base) {
		panic(fmt.Sprintf("relink: rebuilder end %d precedes cursor %d", end, b.index))
	}
	return b.out.String() + b.base[b.index:end]
}
