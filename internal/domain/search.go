package domain

import "slices"

// Mode selects the search variant a request runs under.
type Mode string

const (
	// ModeInstant is the low-latency preview search behind the search box.
	ModeInstant Mode = "instant"
	// ModeFull is the complete search with paging, sorting and the
	// "continue shopping" side effect.
	ModeFull Mode = "full"
)

// Sort options for search results.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest, SortNameAsc, SortNameDesc}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	return slices.Contains(ValidSortOptions(), sort)
}

// Searchable field names.
const (
	FieldName             = "name"
	FieldShortDescription = "shortdescription"
	FieldFullDescription  = "fulldescription"
	FieldTagName          = "tagname"
	FieldSKU              = "sku"
)

// RawQuery is a search request as the caller sent it, before normalization.
type RawQuery struct {
	Term           string   `json:"term"`
	Fields         []string `json:"fields,omitempty"`
	Page           int      `json:"page,omitempty"`
	PerPage        int      `json:"per_page,omitempty"`
	Sort           string   `json:"sort,omitempty"`
	Language       string   `json:"language,omitempty"`
	CategoryID     string   `json:"category_id,omitempty"`
	ManufacturerID string   `json:"manufacturer_id,omitempty"`
}

// Query is a normalized search query ready for execution.
// Fields is never empty and Limit never exceeds the configured maximum.
type Query struct {
	Term           string   `json:"term"`
	Fields         []string `json:"fields"`
	Offset         int      `json:"offset"`
	Limit          int      `json:"limit"`
	Sort           string   `json:"sort"`
	Language       string   `json:"language,omitempty"`
	CategoryID     string   `json:"category_id,omitempty"`
	ManufacturerID string   `json:"manufacturer_id,omitempty"`
}

// Page returns the 1-based page number the query's offset falls on.
func (q Query) Page() int {
	if q.Limit <= 0 {
		return 1
	}
	return q.Offset/q.Limit + 1
}

// WithTerm returns a copy of the query searching for term.
func (q Query) WithTerm(term string) Query {
	q.Term = term
	q.Fields = slices.Clone(q.Fields)
	return q
}

// Settings is the immutable search configuration consulted per request.
type Settings struct {
	InstantSearchEnabled          bool
	InstantSearchTermMinLength    int
	InstantSearchNumberOfProducts int
	ShowProductImagesInInstant    bool
	SearchFields                  []string
	DefaultPageSize               int
	MaxPageSize                   int
	PageSizeOptions               []int
	DefaultLanguage               string
}

// SKUSearchEnabled reports whether sku is among the globally searchable fields.
func (s Settings) SKUSearchEnabled() bool {
	return slices.Contains(s.SearchFields, FieldSKU)
}
