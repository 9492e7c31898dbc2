// Package batch renames a title across every document of a store. Plan
// computes the rewrites without touching the store; Apply writes a plan
// back. A dry run is a Plan that is never applied.
package batch

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/open-cli-collective/relink/internal/store"
	"github.com/open-cli-collective/relink/pkg/relink"
)

// DefaultWorkers is the parallelism used when Options.Workers is unset.
const DefaultWorkers = 4

// Types whose bodies are never rewritten.
var skippedTypes = map[string]bool{
	"application/javascript": true,
}

// Options configures a batch rename.
type Options struct {
	// Relink is passed to every document pass. FromType and Log are
	// filled in per document.
	Relink  *relink.Options
	Workers int
}

func (o *Options) workers() int {
	if o == nil || o.Workers <= 0 {
		return DefaultWorkers
	}
	return o.Workers
}

func (o *Options) relink() relink.Options {
	if o == nil || o.Relink == nil {
		return relink.Options{}
	}
	return *o.Relink
}

// DocumentChange describes what a rename does to one document.
type DocumentChange struct {
	Title  string
	Before *store.Document
	After  *store.Document
	// Fields lists the names of rewritten fields.
	Fields []string
	// TextChanged is set when the body was rewritten.
	TextChanged bool
	// Impossible is set when some reference could not be rewritten.
	Impossible bool
	Lines      []string
}

// Changed reports whether the document has to be written.
func (c *DocumentChange) Changed() bool {
	return c.TextChanged || len(c.Fields) > 0
}

// Failure is a document whose relink or write failed.
type Failure struct {
	Title string
	Err   error
}

// Report is the outcome of planning a rename.
type Report struct {
	From, To string
	// FromExists and ToExists record whether documents with those titles
	// were present when the plan was made.
	FromExists bool
	ToExists   bool
	Scanned    int
	Skipped    int
	Changes    []DocumentChange
	// Impossible lists the titles of documents needing manual attention.
	Impossible []string
	Failures   []Failure
}

// Pending returns the changes that must be written.
func (r *Report) Pending() []DocumentChange {
	var out []DocumentChange
	for _, c := range r.Changes {
		if c.Changed() {
			out = append(out, c)
		}
	}
	return out
}

// Empty reports whether the rename affects nothing.
func (r *Report) Empty() bool {
	return len(r.Changes) == 0 && len(r.Failures) == 0
}

// Plan relinks every document of st from one title to another. Documents
// are processed in parallel; a document that fails is recorded in the
// report and does not stop the others.
func Plan(ctx context.Context, st store.Store, from, to string, opts *Options) (*Report, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	rep := &Report{From: from, To: to}
	if from == "" || to == "" || from == to {
		return rep, nil
	}
	log := zerolog.Ctx(ctx).With().Str("from", from).Str("to", to).Logger()

	titles, err := st.List(ctx)
	if err != nil {
		return nil, errors.Errorf("failed to list documents: %w", err)
	}

	base := opts.relink()
	for _, title := range titles {
		switch title {
		case from:
			rep.FromExists = true
		case to:
			rep.ToExists = true
		}
	}
	if rep.FromExists && base.FromType == "" {
		if doc, err := st.Get(ctx, from); err == nil {
			base.FromType = doc.Type
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for _, title := range titles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			change, skipped, err := relinkOne(gctx, st, title, from, to, base)

			mu.Lock()
			defer mu.Unlock()
			rep.Scanned++
			switch {
			case err != nil:
				log.Warn().Err(err).Str("document", title).Msg("relink failed")
				rep.Failures = append(rep.Failures, Failure{Title: title, Err: err})
			case skipped:
				rep.Skipped++
			case change != nil:
				rep.Changes = append(rep.Changes, *change)
				if change.Impossible {
					rep.Impossible = append(rep.Impossible, title)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(rep.Changes, func(i, j int) bool { return rep.Changes[i].Title < rep.Changes[j].Title })
	sort.Slice(rep.Failures, func(i, j int) bool { return rep.Failures[i].Title < rep.Failures[j].Title })
	sort.Strings(rep.Impossible)

	log.Info().
		Int("scanned", rep.Scanned).
		Int("changed", len(rep.Pending())).
		Int("impossible", len(rep.Impossible)).
		Int("failed", len(rep.Failures)).
		Msg("planned rename")
	return rep, nil
}

// relinkOne computes the change to one document. Panics inside the pass
// are turned into errors carrying the document title.
func relinkOne(ctx context.Context, st store.Store, title, from, to string, opts relink.Options) (change *DocumentChange, skipped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			change, skipped = nil, false
			err = errors.WithDetails(errors.Errorf("relink panicked: %v", r), "document", title, "from", from, "to", to)
		}
	}()

	doc, err := st.Get(ctx, title)
	if err != nil {
		return nil, false, errors.WithDetails(errors.Errorf("failed to read document: %w", err), "document", title)
	}
	if doc.IsPlugin() || skippedTypes[doc.Type] {
		return nil, true, nil
	}

	logger := zerolog.Ctx(ctx).With().Str("document", title).Logger()
	opts.Log = &logger
	res, err := relink.RelinkDocument(doc.Relink(), from, to, &opts)
	if err != nil {
		return nil, false, errors.WithDetails(err, "document", title, "from", from, "to", to)
	}
	if res == nil {
		return nil, false, nil
	}

	after := doc.Clone()
	change = &DocumentChange{
		Title:       title,
		Before:      doc,
		After:       after,
		TextChanged: res.TextChanged,
		Impossible:  res.Entry.Failed(),
		Lines:       res.Entry.Report(),
	}
	for name, value := range res.Fields {
		after.Fields[name] = value
		change.Fields = append(change.Fields, name)
	}
	sort.Strings(change.Fields)
	if res.TextChanged {
		after.Text = res.Text
	}
	return change, false, nil
}

// Apply writes every pending change of rep to st, then renames the
// document titled rep.From. A document that cannot be written is added
// to rep.Failures and the remaining documents are still written.
func Apply(ctx context.Context, st store.Store, rep *Report) error {
	if rep.From == "" || rep.To == "" || rep.From == rep.To {
		return nil
	}
	if rep.FromExists && rep.ToExists {
		return errors.WithDetails(errors.Errorf("a document titled %q already exists", rep.To), "from", rep.From, "to", rep.To)
	}
	log := zerolog.Ctx(ctx)

	for _, change := range rep.Pending() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.Put(ctx, change.After); err != nil {
			log.Warn().Err(err).Str("document", change.Title).Msg("write failed")
			rep.Failures = append(rep.Failures, Failure{
				Title: change.Title,
				Err:   errors.WithDetails(errors.Errorf("failed to write document: %w", err), "document", change.Title),
			})
			continue
		}
		log.Debug().Str("document", change.Title).Strs("fields", change.Fields).Bool("text", change.TextChanged).Msg("wrote document")
	}

	if !rep.FromExists {
		return nil
	}
	if err := st.Rename(ctx, rep.From, rep.To); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug().Str("document", rep.From).Msg("renamed document vanished")
			return nil
		}
		return errors.WithDetails(errors.Errorf("failed to rename document: %w", err), "from", rep.From, "to", rep.To)
	}
	log.Info().Str("from", rep.From).Str("to", rep.To).Msg("renamed document")
	return nil
}

// Details returns the annotations attached to a failure, for display.
func Details(err error) map[string]interface{} {
	return errors.AllDetails(err)
}
