package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/open-cli-collective/relink/internal/batch"
)

type changeJSON struct {
	Title       string   `json:"title"`
	Fields      []string `json:"fields,omitempty"`
	TextChanged bool     `json:"text_changed"`
	Impossible  bool     `json:"impossible"`
	Lines       []string `json:"lines,omitempty"`
}

type failureJSON struct {
	Title   string                 `json:"title"`
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type reportJSON struct {
	From       string        `json:"from"`
	To         string        `json:"to"`
	Applied    bool          `json:"applied"`
	Scanned    int           `json:"scanned"`
	Skipped    int           `json:"skipped"`
	Changes    []changeJSON  `json:"changes"`
	Impossible []string      `json:"impossible"`
	Failures   []failureJSON `json:"failures"`
}

// RenderReport prints the outcome of a rename. applied tells whether the
// changes were written or only planned.
func (r *Renderer) RenderReport(rep *batch.Report, applied bool) error {
	if r.format == FormatJSON {
		return r.RenderJSON(toReportJSON(rep, applied))
	}

	headers := []string{"DOCUMENT", "CHANGES", "STATUS"}
	rows := make([][]string, 0, len(rep.Changes))
	for _, c := range rep.Changes {
		rows = append(rows, []string{c.Title, describeChange(c), changeStatus(c)})
	}
	for _, f := range rep.Failures {
		rows = append(rows, []string{f.Title, Truncate(f.Err.Error(), 60), "failed"})
	}
	if r.format == FormatPlain {
		r.RenderTable(headers, rows)
		return nil
	}

	if len(rows) > 0 {
		r.RenderTable(headers, rows)
		r.RenderText("")
	}
	for _, c := range rep.Changes {
		if !c.Impossible {
			continue
		}
		r.Warning(fmt.Sprintf("%s needs manual attention:", c.Title))
		for _, line := range c.Lines {
			if strings.HasPrefix(line, "Cannot") {
				r.RenderText("    " + line)
			}
		}
	}
	for _, f := range rep.Failures {
		r.Error(fmt.Sprintf("%s: %v", f.Title, f.Err))
		details := batch.Details(f.Err)
		for _, k := range sortedDetailKeys(details) {
			r.RenderText(fmt.Sprintf("    %s: %v", k, details[k]))
		}
	}

	r.summary(rep, applied)
	return nil
}

func (r *Renderer) summary(rep *batch.Report, applied bool) {
	pending := len(rep.Pending())
	switch {
	case rep.From == "" || rep.To == "" || rep.From == rep.To:
		r.RenderText("Nothing to rename.")
	case applied && len(rep.Failures) == 0:
		r.Success(fmt.Sprintf("Renamed '%s' to '%s': updated %s", rep.From, rep.To, plural(pending, "document")))
	case applied:
		r.Error(fmt.Sprintf("Renamed '%s' to '%s': updated %s, %s failed", rep.From, rep.To,
			plural(pending-countPendingFailures(rep), "document"), plural(len(rep.Failures), "document")))
	default:
		r.RenderText(fmt.Sprintf("Renaming '%s' to '%s' would update %s of %d scanned.",
			rep.From, rep.To, plural(pending, "document"), rep.Scanned))
	}
}

func toReportJSON(rep *batch.Report, applied bool) reportJSON {
	out := reportJSON{
		From:       rep.From,
		To:         rep.To,
		Applied:    applied,
		Scanned:    rep.Scanned,
		Skipped:    rep.Skipped,
		Changes:    []changeJSON{},
		Impossible: []string{},
		Failures:   []failureJSON{},
	}
	for _, c := range rep.Changes {
		out.Changes = append(out.Changes, changeJSON{
			Title:       c.Title,
			Fields:      c.Fields,
			TextChanged: c.TextChanged,
			Impossible:  c.Impossible,
			Lines:       c.Lines,
		})
	}
	out.Impossible = append(out.Impossible, rep.Impossible...)
	for _, f := range rep.Failures {
		out.Failures = append(out.Failures, failureJSON{Title: f.Title, Error: f.Err.Error(), Details: batch.Details(f.Err)})
	}
	return out
}

// RenderChangeDiffs prints, for every pending change, the rewritten
// fields and a diff of the body.
func (r *Renderer) RenderChangeDiffs(rep *batch.Report, context int) {
	bold := color.New(color.Bold)
	for _, c := range rep.Pending() {
		bold.Fprintf(r.writer, "=== %s\n", c.Title)
		for _, name := range c.Fields {
			r.RenderDiff([]DiffLine{
				{Op: DiffDelete, Text: name + ": " + c.Before.Fields[name]},
				{Op: DiffInsert, Text: name + ": " + c.After.Fields[name]},
			})
		}
		if c.TextChanged {
			r.RenderDiff(LineDiff(c.Before.Text, c.After.Text, context))
		}
	}
}

func describeChange(c batch.DocumentChange) string {
	parts := append([]string{}, c.Fields...)
	if c.TextChanged {
		parts = append(parts, "text")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func changeStatus(c batch.DocumentChange) string {
	switch {
	case c.Impossible && c.Changed():
		return "partial"
	case c.Impossible:
		return "impossible"
	}
	return "changed"
}

func countPendingFailures(rep *batch.Report) int {
	failed := make(map[string]bool, len(rep.Failures))
	for _, f := range rep.Failures {
		failed[f.Title] = true
	}
	n := 0
	for _, c := range rep.Pending() {
		if failed[c.Title] {
			n++
		}
	}
	return n
}

func sortedDetailKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
