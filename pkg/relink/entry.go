// entry.go defines the report tree produced by a relink pass.
package relink

import "fmt"

// Entry is one node of a relink report: either a Leaf describing a single
// construct or a Container grouping the entries of a body of text.
type Entry interface {
	// Name is the construct that produced the entry.
	Name() string
	// Output is the replacement text for the construct's span, if any.
	Output() (string, bool)
	// Failed reports whether the entry or any descendant is impossible.
	Failed() bool
	// Report renders human-readable lines describing the entry.
	Report() []string

	entry()
}

// Leaf records a single rewritten or unrewritable reference.
type Leaf struct {
	Construct   string
	Detail      string // parameter, attribute or field involved, if any
	From, To    string
	Impossible  bool
	Placeholder bool
	Text        string
	Modified    bool
}

func (l *Leaf) entry() {}

// Name implements Entry.
func (l *Leaf) Name() string { return l.Construct }

// Output implements Entry.
func (l *Leaf) Output() (string, bool) { return l.Text, l.Modified }

// Failed implements Entry.
func (l *Leaf) Failed() bool { return l.Impossible }

// Report implements Entry.
func (l *Leaf) Report() []string {
	what := l.Construct
	if l.Detail != "" {
		what += " " + l.Detail
	}
	switch {
	case l.Impossible:
		return []string{fmt.Sprintf("Cannot relink %s from '%s' to '%s'", what, l.From, l.To)}
	case l.Placeholder:
		return []string{fmt.Sprintf("Renaming %s '%s' to '%s' through a placeholder", what, l.From, l.To)}
	}
	return []string{fmt.Sprintf("Renaming %s '%s' to '%s'", what, l.From, l.To)}
}

// Container groups the entries produced inside one construct or document.
type Container struct {
	Construct string
	Children  []Entry
	Text      string
	Modified  bool
}

func (c *Container) entry() {}

// Name implements Entry.
func (c *Container) Name() string { return c.Construct }

// Output implements Entry.
func (c *Container) Output() (string, bool) { return c.Text, c.Modified }

// Add appends a child entry.
func (c *Container) Add(e Entry) {
	if e != nil {
		c.Children = append(c.Children, e)
	}
}

// Failed implements Entry.
func (c *Container) Failed() bool {
	for _, child := range c.Children {
		if child.Failed() {
			return true
		}
	}
	return false
}

// Report implements Entry.
func (c *Container) Report() []string {
	var lines []string
	for _, child := range c.Children {
		lines = append(lines, child.Report()...)
	}
	return lines
}

// Empty reports whether the container holds no entries.
func (c *Container) Empty() bool {
	return len(c.Children) == 0
}

// Logger is the append-only entry sink of one pass. Handlers and the
// dispatcher write to it; the pass reads it once when it ends.
type Logger struct {
	entries []Entry
}

// Add records an entry. A nil Logger discards it.
func (l *Logger) Add(e Entry) {
	if l == nil || e == nil {
		return
	}
	l.entries = append(l.entries, e)
}

// Entries returns everything recorded so far.
func (l *Logger) Entries() []Entry {
	if l == nil {
		return nil
	}
	return l.entries
}
