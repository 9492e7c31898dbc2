package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/open-cli-collective/relink/api"
)

// StorageFormat is the content type of a Confluence page body.
const StorageFormat = "application/xhtml+xml"

// ConfluenceStore exposes the current pages of one space as documents.
// Page bodies are storage-format XHTML.
type ConfluenceStore struct {
	client   *api.Client
	spaceKey string
	message  string

	mu    sync.Mutex
	pages map[string]string // title -> page ID
}

// NewConfluenceStore returns a store over the space with the given key.
// message is recorded on every page version the store writes.
func NewConfluenceStore(client *api.Client, spaceKey, message string) *ConfluenceStore {
	return &ConfluenceStore{client: client, spaceKey: spaceKey, message: message}
}

// index lists the space's pages once. Caller holds s.mu.
func (s *ConfluenceStore) index(ctx context.Context) (map[string]string, error) {
	if s.pages != nil {
		return s.pages, nil
	}
	space, err := s.client.GetSpaceByKey(ctx, s.spaceKey)
	if err != nil {
		return nil, err
	}
	pages := make(map[string]string)
	err = s.client.EachPage(ctx, space.ID, &api.ListPagesOptions{Status: "current"}, func(p api.Page) error {
		pages[p.Title] = p.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("space", s.spaceKey).Int("pages", len(pages)).Msg("indexed space")
	s.pages = pages
	return pages, nil
}

func (s *ConfluenceStore) page(ctx context.Context, title string) (*api.Page, error) {
	s.mu.Lock()
	pages, err := s.index(ctx)
	id, ok := pages[title]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", title, ErrNotFound)
	}
	return s.client.GetPage(ctx, id)
}

// List implements Store.
func (s *ConfluenceStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return sortedKeys(pages), nil
}

// Get implements Store.
func (s *ConfluenceStore) Get(ctx context.Context, title string) (*Document, error) {
	p, err := s.page(ctx, title)
	if err != nil {
		return nil, err
	}
	return &Document{
		Title:  p.Title,
		Type:   StorageFormat,
		Fields: map[string]string{},
		Text:   p.StorageBody(),
	}, nil
}

// Put implements Store. Only existing pages can be written.
func (s *ConfluenceStore) Put(ctx context.Context, doc *Document) error {
	p, err := s.page(ctx, doc.Title)
	if err != nil {
		return err
	}
	_, err = s.client.UpdatePage(ctx, api.NewStorageUpdate(p, p.Title, doc.Text, s.message))
	return err
}

// Rename implements Store.
func (s *ConfluenceStore) Rename(ctx context.Context, from, to string) error {
	p, err := s.page(ctx, from)
	if err != nil {
		return err
	}
	if _, err := s.client.UpdatePage(ctx, api.NewStorageUpdate(p, to, p.StorageBody(), s.message)); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.pages, from)
	s.pages[to] = p.ID
	s.mu.Unlock()
	return nil
}
