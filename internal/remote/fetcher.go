package remote

import (
	"context"
	"net/url"
)

// PageHandler receives every non-empty page in collection order.
type PageHandler func(ctx context.Context, page *Page) error

type FetchStats struct {
	Calls   int
	Pages   int
	Records int
}

// FetchAll walks a collection with offset/limit paging. It stops after a
// short or empty page. A handler error stops the walk and is returned as is;
// a fetch error is returned as *FetchError.
func (c *Client) FetchAll(ctx context.Context, token, path string, pageSize int, params url.Values, handle PageHandler) (FetchStats, error) {
	var stats FetchStats
	offset := 0
	for {
		page, err := c.FetchPage(ctx, token, path, PageRequest{Limit: pageSize, Offset: offset, Params: params})
		if err != nil {
			return stats, &FetchError{Path: path, Offset: offset, Err: err}
		}
		stats.Calls++

		if len(page.Records) == 0 {
			return stats, nil
		}

		if err := handle(ctx, page); err != nil {
			return stats, err
		}
		stats.Pages++
		stats.Records += len(page.Records)

		if !page.MoreAvailable {
			return stats, nil
		}
		offset += len(page.Records)
	}
}
