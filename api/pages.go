package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListPagesOptions narrows a page listing.
type ListPagesOptions struct {
	Limit      int
	Cursor     string
	Status     string // current, archived, draft
	Title      string // exact title
	BodyFormat string // storage
}

func (o *ListPagesOptions) values() url.Values {
	params := url.Values{}
	params.Set("limit", "100")
	if o == nil {
		return params
	}
	if o.Limit > 0 {
		params.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Cursor != "" {
		params.Set("cursor", o.Cursor)
	}
	if o.Status != "" {
		params.Set("status", o.Status)
	}
	if o.Title != "" {
		params.Set("title", o.Title)
	}
	if o.BodyFormat != "" {
		params.Set("body-format", o.BodyFormat)
	}
	return params
}

// ListPages returns one page of results for the pages of a space.
func (c *Client) ListPages(ctx context.Context, spaceID string, opts *ListPagesOptions) (*PaginatedResponse[Page], error) {
	path := fmt.Sprintf("/api/v2/spaces/%s/pages?%s", url.PathEscape(spaceID), opts.values().Encode())
	var result PaginatedResponse[Page]
	if err := c.getJSON(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return &result, nil
}

// EachPage calls fn for every page of a space, following cursors until
// the listing is exhausted or fn returns an error.
func (c *Client) EachPage(ctx context.Context, spaceID string, opts *ListPagesOptions, fn func(Page) error) error {
	next := ListPagesOptions{}
	if opts != nil {
		next = *opts
	}
	for {
		result, err := c.ListPages(ctx, spaceID, &next)
		if err != nil {
			return err
		}
		for _, p := range result.Results {
			if err := fn(p); err != nil {
				return err
			}
		}
		if !result.HasMore() {
			return nil
		}
		cursor, err := cursorFrom(result.Links.Next)
		if err != nil {
			return err
		}
		if cursor == "" || cursor == next.Cursor {
			return nil
		}
		next.Cursor = cursor
	}
}

// cursorFrom extracts the cursor parameter of a next link.
func cursorFrom(next string) (string, error) {
	u, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("failed to parse next link: %w", err)
	}
	return u.Query().Get("cursor"), nil
}

// GetPage returns a page with its storage-format body.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	path := fmt.Sprintf("/api/v2/pages/%s?body-format=storage", url.PathEscape(pageID))
	var page Page
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("failed to get page %s: %w", pageID, err)
	}
	return &page, nil
}

// UpdatePage writes a new version of a page.
func (c *Client) UpdatePage(ctx context.Context, req *UpdatePageRequest) (*Page, error) {
	path := fmt.Sprintf("/api/v2/pages/%s", url.PathEscape(req.ID))
	body, err := c.do(ctx, http.MethodPut, path, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update page %s: %w", req.ID, err)
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse update page response: %w", err)
	}
	return &page, nil
}

// NewStorageUpdate builds the request that replaces page's title and
// storage body, bumping its version.
func NewStorageUpdate(page *Page, title, storage, message string) *UpdatePageRequest {
	status := page.Status
	if status == "" {
		status = "current"
	}
	return &UpdatePageRequest{
		ID:     page.ID,
		Status: status,
		Title:  title,
		Body: &Body{Storage: &BodyRepresentation{
			Representation: "storage",
			Value:          storage,
		}},
		Version: &Version{Number: page.VersionNumber() + 1, Message: message},
	}
}
