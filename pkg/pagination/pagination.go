package pagination

import (
	"fmt"
	"net/http"
	"strconv"
)

// ParamError reports a malformed paging query parameter.
type ParamError struct {
	Param string
	Value string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s must be a positive integer, got %q", e.Param, e.Value)
}

// Params holds pagination parameters extracted from query strings.
// PerPage is zero when the caller did not ask for a page size.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Offset returns the zero-based index of the first item on the page.
func (p Params) Offset() int {
	if p.Page < 1 || p.PerPage < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// FromRequest extracts page and per_page from an HTTP request. Missing
// values default to page 1 and no page size; malformed or non-positive
// values are rejected with a *ParamError.
func FromRequest(r *http.Request) (Params, error) {
	p := Params{Page: 1}

	if page := r.URL.Query().Get("page"); page != "" {
		v, err := strconv.Atoi(page)
		if err != nil || v < 1 {
			return Params{}, &ParamError{Param: "page", Value: page}
		}
		p.Page = v
	}

	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		v, err := strconv.Atoi(perPage)
		if err != nil || v < 1 {
			return Params{}, &ParamError{Param: "per_page", Value: perPage}
		}
		p.PerPage = v
	}

	return p, nil
}

// Meta describes where one page sits within a result set.
type Meta struct {
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewMeta computes page metadata for totalCount items split into pages of perPage.
func NewMeta(totalCount, page, perPage int) Meta {
	totalPages := 0
	if perPage > 0 {
		totalPages = totalCount / perPage
		if totalCount%perPage > 0 {
			totalPages++
		}
	}

	return Meta{
		TotalCount: totalCount,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
