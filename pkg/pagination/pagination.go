package pagination

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Params holds pagination parameters extracted from a request. A zero Limit
// means the request asked for everything.
type Params struct {
	Limit  int
	Offset int
}

// Keys are the query parameters FromContext reads. Handlers that forward
// the remaining query parameters as filters skip these.
var Keys = []string{"limit", "offset", "all"}

// FromContext extracts pagination parameters from the echo context.
// all=true disables paging.
func FromContext(c echo.Context) Params {
	if all, _ := strconv.ParseBool(c.QueryParam("all")); all {
		return Params{}
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Window returns the page of items p selects. It never returns nil.
func Window[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return items[p.Offset:end]
}

// Response wraps a paginated API response.
type Response struct {
	Data    any  `json:"data"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

func NewResponse(data any, total int, p Params) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
	}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Limit > 0 && p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Links returns the next and previous page URLs for a request, keeping its
// other query parameters.
func (p Params) Links(u *url.URL, total int) map[string]string {
	links := map[string]string{}
	if p.Limit == 0 {
		return links
	}
	page := func(offset int) string {
		q := u.Query()
		q.Set("limit", strconv.Itoa(p.Limit))
		q.Set("offset", strconv.Itoa(offset))
		return fmt.Sprintf("%s?%s", u.Path, q.Encode())
	}
	if p.HasNext(total) {
		links["next"] = page(p.NextOffset())
	}
	if p.HasPrevious() {
		links["previous"] = page(p.PreviousOffset())
	}
	return links
}

// SetLinkHeader writes the page links as an RFC 8288 Link header.
func SetLinkHeader(c echo.Context, p Params, total int) {
	links := p.Links(c.Request().URL, total)
	for _, rel := range []string{"next", "previous"} {
		if href, ok := links[rel]; ok {
			c.Response().Header().Add("Link", fmt.Sprintf(`<%s>; rel="%s"`, href, rel))
		}
	}
}
