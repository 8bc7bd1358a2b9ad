// Package query turns raw search requests into executable queries.
package query

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/utafrali/storefront-search/internal/domain"
)

// instantSearchMaxProducts is the hard ceiling on instant search page size.
const instantSearchMaxProducts = 16

// instantSearchFields replace whatever fields an instant search asked for.
var instantSearchFields = []string{domain.FieldName, domain.FieldShortDescription, domain.FieldTagName}

// TermTooShortError reports a missing term or one shorter than the minimum length.
// It is a validation outcome for the caller to render, not a failure.
type TermTooShortError struct {
	Term      string
	MinLength int
}

func (e *TermTooShortError) Error() string {
	return fmt.Sprintf("search term %q is shorter than %d characters", e.Term, e.MinLength)
}

// Normalize validates raw and rewrites it into the canonical query for mode.
// A missing or too short term yields a *TermTooShortError.
func Normalize(raw domain.RawQuery, mode domain.Mode, settings domain.Settings) (domain.Query, error) {
	term := strings.TrimSpace(raw.Term)
	if term == "" || utf8.RuneCountInString(term) < settings.InstantSearchTermMinLength {
		return domain.Query{}, &TermTooShortError{Term: term, MinLength: settings.InstantSearchTermMinLength}
	}

	q := domain.Query{
		Term:           term,
		Language:       raw.Language,
		CategoryID:     raw.CategoryID,
		ManufacturerID: raw.ManufacturerID,
	}
	if q.Language == "" {
		q.Language = settings.DefaultLanguage
	}

	if mode == domain.ModeInstant {
		q.Fields = InstantFields(settings)
		q.Offset = 0
		q.Limit = min(instantSearchMaxProducts, settings.InstantSearchNumberOfProducts)
		q.Sort = domain.SortRelevance
		return q, nil
	}

	q.Fields = dedupe(raw.Fields)
	if len(q.Fields) == 0 {
		q.Fields = slices.Clone(settings.SearchFields)
	}

	perPage := raw.PerPage
	if perPage <= 0 {
		perPage = settings.DefaultPageSize
	}
	q.Limit = min(perPage, settings.MaxPageSize)

	// Pages past math.MaxInt/limit would overflow the offset.
	page := raw.Page
	if page < 1 {
		page = 1
	}
	if q.Limit > 0 {
		page = min(page, math.MaxInt/q.Limit)
	}
	q.Offset = (page - 1) * q.Limit

	q.Sort = raw.Sort
	if q.Sort == "" {
		q.Sort = domain.SortRelevance
	}
	return q, nil
}

// InstantFields returns the fields an instant search runs against: the base
// set plus sku when sku search is globally enabled.
func InstantFields(settings domain.Settings) []string {
	fields := slices.Clone(instantSearchFields)
	if settings.SKUSearchEnabled() {
		fields = append(fields, domain.FieldSKU)
	}
	return fields
}

// dedupe drops blank and repeated field names, keeping first-seen order.
func dedupe(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || slices.Contains(out, f) {
			continue
		}
		out = append(out, f)
	}
	return out
}
