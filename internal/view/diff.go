package view

import (
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffOp classifies a line of a rendered diff.
type DiffOp int

const (
	DiffContext DiffOp = iota
	DiffInsert
	DiffDelete
	// DiffSkip stands for unchanged lines left out of the output.
	DiffSkip
)

// DiffLine is one line of a rendered diff.
type DiffLine struct {
	Op   DiffOp
	Text string
}

// LineDiff compares two texts line by line, keeping at most context
// unchanged lines around each change.
func LineDiff(before, after string, context int) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []DiffLine
	for i, d := range diffs {
		text := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			for _, l := range text {
				out = append(out, DiffLine{Op: DiffInsert, Text: l})
			}
		case diffmatchpatch.DiffDelete:
			for _, l := range text {
				out = append(out, DiffLine{Op: DiffDelete, Text: l})
			}
		case diffmatchpatch.DiffEqual:
			out = append(out, contextLines(text, context, i == 0, i == len(diffs)-1)...)
		}
	}
	return out
}

// contextLines trims an unchanged run to the lines adjacent to changes.
func contextLines(text []string, context int, first, last bool) []DiffLine {
	if first && last {
		return nil
	}
	var head, tail int
	if !first {
		head = context
	}
	if !last {
		tail = context
	}
	if head+tail >= len(text) {
		out := make([]DiffLine, 0, len(text))
		for _, l := range text {
			out = append(out, DiffLine{Op: DiffContext, Text: l})
		}
		return out
	}
	var out []DiffLine
	for _, l := range text[:head] {
		out = append(out, DiffLine{Op: DiffContext, Text: l})
	}
	out = append(out, DiffLine{Op: DiffSkip})
	for _, l := range text[len(text)-tail:] {
		out = append(out, DiffLine{Op: DiffContext, Text: l})
	}
	return out
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

// RenderDiff prints a line diff, colored unless color is disabled.
func (r *Renderer) RenderDiff(lines []DiffLine) {
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	faint := color.New(color.Faint)
	for _, l := range lines {
		switch l.Op {
		case DiffInsert:
			green.Fprintln(r.writer, "+ "+l.Text)
		case DiffDelete:
			red.Fprintln(r.writer, "- "+l.Text)
		case DiffSkip:
			faint.Fprintln(r.writer, "  ...")
		default:
			r.RenderText("  " + l.Text)
		}
	}
}
