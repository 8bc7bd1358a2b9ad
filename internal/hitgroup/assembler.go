// Package hitgroup assembles the labeled hit groups shown next to search results.
package hitgroup

import (
	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/i18n"
	"github.com/utafrali/storefront-search/internal/route"
)

// Links builds the URLs hit items point to.
type Links interface {
	Search(p route.SearchParams) string
	Category(p route.CategoryParams) string
	Manufacturer(p route.ManufacturerParams) string
}

// Translator resolves localized display names.
type Translator interface {
	T(lang, key string, args ...any) string
}

// Assembler turns suggestions and secondary hits of an outcome into hit groups.
type Assembler struct {
	links      Links
	translator Translator
}

// NewAssembler creates a new hit group assembler.
func NewAssembler(links Links, translator Translator) *Assembler {
	return &Assembler{
		links:      links,
		translator: translator,
	}
}

// Assemble returns the spell checker, top categories and top manufacturers
// groups of outcome, in that order. Groups without items are left out.
// Ordinals are set but the result is not sorted by them.
func (a *Assembler) Assemble(outcome *domain.Outcome, language string) []domain.HitGroup {
	groups := make([]domain.HitGroup, 0, 3)

	if g, ok := a.spellChecker(outcome.Suggestions, language); ok {
		groups = append(groups, g)
	}

	term := outcome.Term
	if g, ok := a.topHits(outcome.TopCategories, domain.GroupTopCategories, i18n.KeyTopCategories, language, func(h domain.Hit) string {
		return a.links.Category(route.CategoryParams{Term: term, CategoryID: h.EntityID()})
	}); ok {
		groups = append(groups, g)
	}
	if g, ok := a.topHits(outcome.TopManufacturers, domain.GroupTopManufacturers, i18n.KeyTopManufacturers, language, func(h domain.Hit) string {
		return a.links.Manufacturer(route.ManufacturerParams{Term: term, ManufacturerID: h.EntityID()})
	}); ok {
		groups = append(groups, g)
	}

	return groups
}

func (a *Assembler) spellChecker(suggestions []string, language string) (domain.HitGroup, bool) {
	if len(suggestions) == 0 {
		return domain.HitGroup{}, false
	}

	g := domain.HitGroup{
		Name:        domain.GroupSpellChecker,
		DisplayName: a.translator.T(language, i18n.KeyDidYouMean),
		Ordinal:     domain.DefaultGroupOrdinal,
		Items:       make([]domain.HitItem, 0, len(suggestions)),
	}
	for _, s := range suggestions {
		g.Items = append(g.Items, domain.HitItem{
			Label: s,
			URL:   a.links.Search(route.SearchParams{Term: s}),
		})
	}
	return g, true
}

func (a *Assembler) topHits(hits []domain.Hit, name, displayKey, language string, link func(domain.Hit) string) (domain.HitGroup, bool) {
	if len(hits) == 0 {
		return domain.HitGroup{}, false
	}

	g := domain.HitGroup{
		Name:        name,
		DisplayName: a.translator.T(language, displayKey),
		Ordinal:     domain.DefaultGroupOrdinal,
		Items:       make([]domain.HitItem, 0, len(hits)),
	}
	for _, h := range hits {
		g.Items = append(g.Items, domain.HitItem{
			Label: ResolveLabel(h, language),
			URL:   link(h),
		})
	}
	return g, true
}
