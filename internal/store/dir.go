package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
)

// DefaultInclude selects every .tid file below the root.
var DefaultInclude = []string{"**/*.tid"}

// DirStore keeps documents as .tid files under a directory. Include and
// exclude are doublestar patterns relative to the root.
type DirStore struct {
	root    string
	include []string
	exclude []string

	mu    sync.Mutex
	paths map[string]string // title -> slash path relative to root
}

// NewDirStore returns a store over root. Patterns are validated up front.
func NewDirStore(root string, include, exclude []string) (*DirStore, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open document directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return &DirStore{root: root, include: include, exclude: exclude}, nil
}

// Root returns the directory the store reads.
func (s *DirStore) Root() string {
	return s.root
}

func (s *DirStore) excluded(rel string) bool {
	for _, p := range s.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// index maps every selected file's title to its path. Caller holds s.mu.
func (s *DirStore) index(ctx context.Context) (map[string]string, error) {
	if s.paths != nil {
		return s.paths, nil
	}
	log := zerolog.Ctx(ctx)
	fsys := os.DirFS(s.root)

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range s.include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to match %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] && !s.excluded(m) {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)

	paths := make(map[string]string, len(files))
	for _, rel := range files {
		doc, err := s.read(fsys, rel)
		if err != nil {
			return nil, err
		}
		if prev, dup := paths[doc.Title]; dup {
			log.Warn().Str("title", doc.Title).Str("kept", prev).Str("ignored", rel).Msg("duplicate title")
			continue
		}
		paths[doc.Title] = rel
	}
	log.Debug().Int("documents", len(paths)).Str("root", s.root).Msg("indexed directory")
	s.paths = paths
	return paths, nil
}

// read parses one file. A file without a title field is titled by its
// name.
func (s *DirStore) read(fsys fs.FS, rel string) (*Document, error) {
	data, err := fs.ReadFile(fsys, rel)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	doc, err := ParseTid(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rel, err)
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	}
	return doc, nil
}

// List implements Store.
func (s *DirStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return sortedKeys(paths), nil
}

// Get implements Store.
func (s *DirStore) Get(ctx context.Context, title string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	rel, ok := paths[title]
	if !ok {
		return nil, fmt.Errorf("%s: %w", title, ErrNotFound)
	}
	return s.read(os.DirFS(s.root), rel)
}

// Put implements Store. New documents are written at the root.
func (s *DirStore) Put(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, err := s.index(ctx)
	if err != nil {
		return err
	}
	rel, ok := paths[doc.Title]
	if !ok {
		rel = tidFilename(doc.Title)
	}
	if err := s.write(rel, doc); err != nil {
		return err
	}
	paths[doc.Title] = rel
	return nil
}

// Rename implements Store. The file is moved to a name derived from the
// new title, in the same directory.
func (s *DirStore) Rename(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, err := s.index(ctx)
	if err != nil {
		return err
	}
	rel, ok := paths[from]
	if !ok {
		return fmt.Errorf("%s: %w", from, ErrNotFound)
	}
	if _, taken := paths[to]; taken {
		return fmt.Errorf("a document titled %q already exists", to)
	}
	doc, err := s.read(os.DirFS(s.root), rel)
	if err != nil {
		return err
	}
	doc.Title = to

	target := path.Join(path.Dir(rel), tidFilename(to))
	if err := s.write(target, doc); err != nil {
		return err
	}
	if target != rel {
		if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel))); err != nil {
			return fmt.Errorf("failed to remove %s: %w", rel, err)
		}
	}
	delete(paths, from)
	paths[to] = target
	zerolog.Ctx(ctx).Debug().Str("from", rel).Str("to", target).Msg("renamed file")
	return nil
}

func (s *DirStore) write(rel string, doc *Document) error {
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, []byte(FormatTid(doc)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}
