// Package api is a small Confluence Cloud REST client covering what a
// rename needs: reading a space's pages and writing them back.
package api

// PaginatedResponse is a page of results from a v2 list endpoint.
type PaginatedResponse[T any] struct {
	Results []T   `json:"results"`
	Links   Links `json:"_links,omitempty"`
}

// Links holds navigation links; Next is set while more results remain.
type Links struct {
	Next  string `json:"next,omitempty"`
	Base  string `json:"base,omitempty"`
	WebUI string `json:"webui,omitempty"`
}

// HasMore reports whether another page of results exists.
func (p *PaginatedResponse[T]) HasMore() bool {
	return p.Links.Next != ""
}

// Space is a Confluence space.
type Space struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Page is a Confluence page. Body is only populated when requested.
type Page struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Title    string   `json:"title"`
	SpaceID  string   `json:"spaceId"`
	ParentID string   `json:"parentId,omitempty"`
	Version  *Version `json:"version,omitempty"`
	Body     *Body    `json:"body,omitempty"`
	Links    Links    `json:"_links,omitempty"`
}

// VersionNumber returns the page's version, or 0 when unknown.
func (p *Page) VersionNumber() int {
	if p.Version == nil {
		return 0
	}
	return p.Version.Number
}

// StorageBody returns the storage-format body, or "".
func (p *Page) StorageBody() string {
	if p.Body == nil || p.Body.Storage == nil {
		return ""
	}
	return p.Body.Storage.Value
}

// Version identifies a page revision.
type Version struct {
	Number  int    `json:"number"`
	Message string `json:"message,omitempty"`
}

// Body carries page content by representation.
type Body struct {
	Storage *BodyRepresentation `json:"storage,omitempty"`
}

// BodyRepresentation is content in one representation.
type BodyRepresentation struct {
	Representation string `json:"representation"`
	Value          string `json:"value"`
}

// UpdatePageRequest replaces a page's title and body as a new version.
type UpdatePageRequest struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Title   string   `json:"title"`
	Body    *Body    `json:"body"`
	Version *Version `json:"version"`
}

// ErrorResponse is an error reported by the API.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return e.Message
}
