package soundcloud

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// page mirrors the linked_partitioning envelope the API wraps list responses
// in: the page's items plus an absolute URL for the next page, empty on the
// last page.
type page[T any] struct {
	Collection []T    `json:"collection"`
	NextHref   string `json:"next_href"`
}

// Paginate walks a paginated endpoint eagerly, following next_href pointers
// until the server signals the last page, and returns the flattened item
// sequence. The whole result set is held in memory, so this is only suitable
// for bounded collections. Page requests after the first wait on the client's
// limiter when one is configured.
func Paginate[T any](ctx context.Context, c *Client, cred *Credential, path string, pageSize int) ([]T, error) {
	if pageSize <= 0 {
		pageSize = 50
	}

	query := url.Values{}
	query.Set("linked_partitioning", "true")
	query.Set("limit", strconv.Itoa(pageSize))

	var items []T
	next := path

	for {
		var pg page[T]
		if err := c.Request(ctx, cred, "GET", next, query, nil, &pg); err != nil {
			return nil, err
		}

		items = append(items, pg.Collection...)

		if pg.NextHref == "" {
			break
		}

		if err := c.pace(ctx); err != nil {
			return nil, err
		}

		// next_href is absolute and already carries the cursor query.
		next = strings.TrimPrefix(pg.NextHref, c.baseURL)
		query = nil
	}

	return items, nil
}
