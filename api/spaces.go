package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetSpaceByKey resolves a space key such as "DEV" to the space.
func (c *Client) GetSpaceByKey(ctx context.Context, key string) (*Space, error) {
	params := url.Values{}
	params.Set("keys", key)
	params.Set("limit", "1")

	var result PaginatedResponse[Space]
	if err := c.getJSON(ctx, "/api/v2/spaces?"+params.Encode(), &result); err != nil {
		return nil, fmt.Errorf("failed to look up space %s: %w", key, err)
	}
	if len(result.Results) == 0 {
		return nil, &ErrorResponse{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("space with key '%s' not found", key),
		}
	}
	return &result.Results[0], nil
}
