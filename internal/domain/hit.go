package domain

import "time"

// Hit is a single backend record. Primary hits are products, secondary hits
// are the categories and manufacturers matching the term.
type Hit struct {
	ID string `json:"id"`
	// Fields holds unlocalized values keyed by field name.
	Fields map[string]string `json:"fields,omitempty"`
	// Localized holds per-language values keyed by language code, then field name.
	Localized map[string]map[string]string `json:"localized,omitempty"`
}

// EntityID returns the stable identifier of the entity behind the hit.
func (h Hit) EntityID() string {
	return h.ID
}

// Field looks up a field value. With a non-empty language only the localized
// value is consulted; callers wanting a fallback resolve it themselves.
// Absent values yield the empty string.
func (h Hit) Field(name, language string) string {
	if language == "" {
		return h.Fields[name]
	}
	return h.Localized[language][name]
}

// SearchResult is what a backend returns for one executed query.
type SearchResult struct {
	Hits       []Hit `json:"hits"`
	TotalCount int   `json:"total_count"`
	// Suggestions are spell corrections ordered by backend confidence.
	Suggestions      []string `json:"suggestions"`
	TopCategories    []Hit    `json:"top_categories"`
	TopManufacturers []Hit    `json:"top_manufacturers"`
	TookMs           int64    `json:"took_ms"`
}

// LocalizedProduct carries the translatable product properties for one language.
type LocalizedProduct struct {
	Name             string `json:"name,omitempty"`
	ShortDescription string `json:"short_description,omitempty"`
	CategoryName     string `json:"category_name,omitempty"`
	ManufacturerName string `json:"manufacturer_name,omitempty"`
}

// Product is a catalog document as stored in a search backend.
type Product struct {
	ID               string                      `json:"id"`
	Name             string                      `json:"name"`
	ShortDescription string                      `json:"short_description"`
	FullDescription  string                      `json:"full_description"`
	SKU              string                      `json:"sku"`
	Tags             []string                    `json:"tags"`
	CategoryID       string                      `json:"category_id"`
	CategoryName     string                      `json:"category_name"`
	ManufacturerID   string                      `json:"manufacturer_id"`
	ManufacturerName string                      `json:"manufacturer_name"`
	Price            int64                       `json:"price"`
	Currency         string                      `json:"currency"`
	Published        bool                        `json:"published"`
	Localized        map[string]LocalizedProduct `json:"localized,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
}

// ToHit converts the product document into a primary search hit.
func (p *Product) ToHit() Hit {
	hit := Hit{
		ID: p.ID,
		Fields: map[string]string{
			FieldName:             p.Name,
			FieldShortDescription: p.ShortDescription,
			FieldSKU:              p.SKU,
			"categoryid":          p.CategoryID,
			"manufacturerid":      p.ManufacturerID,
			"currency":            p.Currency,
		},
	}
	if len(p.Localized) > 0 {
		hit.Localized = make(map[string]map[string]string, len(p.Localized))
		for lang, lp := range p.Localized {
			hit.Localized[lang] = map[string]string{
				FieldName:             lp.Name,
				FieldShortDescription: lp.ShortDescription,
			}
		}
	}
	return hit
}

// CategoryHit builds the secondary hit for the product's category.
func (p *Product) CategoryHit() Hit {
	return secondaryHit(p.CategoryID, p.CategoryName, p.Localized, func(lp LocalizedProduct) string { return lp.CategoryName })
}

// ManufacturerHit builds the secondary hit for the product's manufacturer.
func (p *Product) ManufacturerHit() Hit {
	return secondaryHit(p.ManufacturerID, p.ManufacturerName, p.Localized, func(lp LocalizedProduct) string { return lp.ManufacturerName })
}

func secondaryHit(id, name string, localized map[string]LocalizedProduct, pick func(LocalizedProduct) string) Hit {
	hit := Hit{ID: id, Fields: map[string]string{FieldName: name}}
	for lang, lp := range localized {
		v := pick(lp)
		if v == "" {
			continue
		}
		if hit.Localized == nil {
			hit.Localized = make(map[string]map[string]string)
		}
		hit.Localized[lang] = map[string]string{FieldName: v}
	}
	return hit
}
