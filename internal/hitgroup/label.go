package hitgroup

import "github.com/utafrali/storefront-search/internal/domain"

// ResolveLabel picks the display label of a secondary hit: the localized
// name when a language is given and it is non-empty, else the unlocalized
// name. Both missing yields "", which callers render as is.
func ResolveLabel(hit domain.Hit, language string) string {
	candidates := make([]func() string, 0, 2)
	if language != "" {
		candidates = append(candidates, func() string { return hit.Field(domain.FieldName, language) })
	}
	candidates = append(candidates, func() string { return hit.Field(domain.FieldName, "") })
	return firstNonEmpty(candidates...)
}

func firstNonEmpty(candidates ...func() string) string {
	for _, c := range candidates {
		if v := c(); v != "" {
			return v
		}
	}
	return ""
}
