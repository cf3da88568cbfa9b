package query

import (
	"net/url"
	"strconv"
)

// Result is one window of a collection together with the total number of
// records matching the filters and search.
type Result[T any] struct {
	Items []T
	Count int
}

// Page is the paginated response envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage builds the envelope for result. Links are derived from base,
// the URL of the current request, by replacing its page parameter.
func NewPage[T any](result Result[T], p Params, base *url.URL) Page[T] {
	items := result.Items
	if items == nil {
		items = []T{}
	}
	page := Page[T]{Count: result.Count, Results: items}

	last := LastPage(result.Count, p.PageSize)
	if p.Page < last {
		link := pageURL(base, p.Page+1)
		page.Next = &link
	}
	if p.Page > 1 {
		prev := p.Page - 1
		if prev > last {
			prev = last
		}
		link := pageURL(base, prev)
		page.Previous = &link
	}
	return page
}

// LastPage is the number of the final non-empty page, at least 1.
func LastPage(count, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

func pageURL(base *url.URL, page int) string {
	if base == nil {
		base = &url.URL{}
	}
	u := *base
	q := u.Query()
	if page <= 1 {
		q.Del(ParamPage)
	} else {
		q.Set(ParamPage, strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
