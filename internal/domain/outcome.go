package domain

// Hit group names.
const (
	GroupSpellChecker     = "SpellChecker"
	GroupTopCategories    = "TopCategories"
	GroupTopManufacturers = "TopManufacturers"
	DefaultGroupOrdinal   = -100
)

// HitItem is one presentable entry of a hit group.
type HitItem struct {
	// Label may be empty when no name could be resolved for the hit.
	Label string `json:"label"`
	URL   string `json:"url"`
}

// HitGroup is a named bucket of items. Ordinal is advisory ordering
// metadata for renderers; lower values sort first.
type HitGroup struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Ordinal     int       `json:"ordinal"`
	Items       []HitItem `json:"items"`
}

// Paging describes the page of primary hits an outcome carries.
type Paging struct {
	Page           int   `json:"page"`
	PerPage        int   `json:"per_page"`
	TotalPages     int   `json:"total_pages"`
	HasNext        bool  `json:"has_next"`
	HasPrev        bool  `json:"has_prev"`
	AvailableSizes []int `json:"available_page_sizes,omitempty"`
}

// Outcome is the assembled result of one search request.
type Outcome struct {
	// Term is the term actually searched: the original, or the applied correction.
	Term string `json:"term"`
	// AttemptedTerm is the originally requested term when a correction was applied.
	AttemptedTerm string     `json:"attempted_term,omitempty"`
	TotalCount    int        `json:"total_count"`
	Hits          []Hit      `json:"hits"`
	Suggestions   []string   `json:"suggestions"`
	Groups        []HitGroup `json:"hit_groups"`
	Query         *Query     `json:"query,omitempty"`
	Paging        *Paging    `json:"paging,omitempty"`
	// Error carries a user-facing message when the query was rejected.
	Error string `json:"error,omitempty"`

	TopCategories    []Hit `json:"-"`
	TopManufacturers []Hit `json:"-"`
}

// Corrected reports whether the outcome reflects a substituted term.
func (o *Outcome) Corrected() bool {
	return o.AttemptedTerm != ""
}
