// Package listutil parses paging parameters for list endpoints and trims
// look-ahead rows into page metadata.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
)

// PageParams carries pagination parameters parsed from a request.
type PageParams struct {
	Page    int // 1-indexed page number
	PerPage int // rows per page
}

// PageInfo carries pagination metadata for a response.
type PageInfo struct {
	Page     int  `json:"page"`
	PerPage  int  `json:"per_page"`
	HasMore  bool `json:"has_more"`
	NextPage int  `json:"next_page,omitempty"`
}

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 20

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 20, 50, 100, 200}

// ParsePageParams extracts page and per_page from URL query values.
// PRE: none
// POST: returns valid PageParams with defaults applied
func ParsePageParams(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !slices.Contains(PerPageOptions, perPage) {
		perPage = DefaultPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

func (p PageParams) normalized() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	return p
}

// FetchLimit is the row count to request from a store: one extra row
// reveals whether another page exists without a COUNT query.
func (p PageParams) FetchLimit() int {
	return p.normalized().PerPage + 1
}

// Offset returns the SQL OFFSET for the page.
// POST: Returns (Page-1) * PerPage
func (p PageParams) Offset() int {
	n := p.normalized()
	return (n.Page - 1) * n.PerPage
}

// Trim cuts rows fetched with FetchLimit down to one page and reports
// whether more rows follow.
// PRE: rows came from a query limited to p.FetchLimit()
// POST: len(result) <= PerPage; HasMore is true only if a look-ahead row was present
func Trim[T any](rows []T, p PageParams) ([]T, PageInfo) {
	n := p.normalized()
	info := PageInfo{Page: n.Page, PerPage: n.PerPage}
	if len(rows) > n.PerPage {
		rows = rows[:n.PerPage]
		info.HasMore = true
		info.NextPage = n.Page + 1
	}
	return rows, info
}
