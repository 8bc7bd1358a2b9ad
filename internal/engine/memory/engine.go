package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/engine"
)

// Engine is an in-memory implementation of engine.Searcher.
// It provides substring matching on the queried fields and edit-distance
// spell corrections drawn from product names and tags.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu         sync.RWMutex
	products   map[string]domain.Product
	order      []string
	vocabulary map[string]int
}

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		products:   make(map[string]domain.Product),
		vocabulary: make(map[string]int),
	}
}

// BulkIndex adds or updates multiple products in the in-memory index.
func (e *Engine) BulkIndex(_ context.Context, products []domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range products {
		e.put(products[i])
	}
	e.rebuildVocabulary()
	return nil
}

// Search executes a search query against the in-memory index.
func (e *Engine) Search(_ context.Context, query *domain.Query) (*domain.SearchResult, error) {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	termLower := strings.ToLower(strings.TrimSpace(query.Term))

	matched := make([]domain.Product, 0)
	for _, id := range e.order {
		p := e.products[id]
		if !e.matches(&p, query, termLower) {
			continue
		}
		matched = append(matched, p)
	}

	e.sortProducts(matched, query.Sort, termLower, query.Language)

	total := len(matched)

	offset := query.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	limit := query.Limit
	if limit < 1 {
		limit = 20
	}
	end := offset + limit
	if end > total {
		end = total
	}

	hits := make([]domain.Hit, 0, end-offset)
	for i := offset; i < end; i++ {
		hits = append(hits, matched[i].ToHit())
	}

	result := &domain.SearchResult{
		Hits:             hits,
		TotalCount:       total,
		Suggestions:      []string{},
		TopCategories:    topHits(matched, func(p *domain.Product) (string, domain.Hit) { return p.CategoryID, p.CategoryHit() }),
		TopManufacturers: topHits(matched, func(p *domain.Product) (string, domain.Hit) { return p.ManufacturerID, p.ManufacturerHit() }),
	}
	if total == 0 && termLower != "" {
		result.Suggestions = e.suggest(termLower)
	}
	result.TookMs = time.Since(start).Milliseconds()

	return result, nil
}

func (e *Engine) put(p domain.Product) {
	if _, exists := e.products[p.ID]; !exists {
		e.order = append(e.order, p.ID)
	}
	e.products[p.ID] = p
}

// rebuildVocabulary recounts the words spell corrections are drawn from.
// Callers must hold the write lock.
func (e *Engine) rebuildVocabulary() {
	vocab := make(map[string]int)
	for _, p := range e.products {
		words := strings.Fields(strings.ToLower(p.Name))
		for _, lp := range p.Localized {
			words = append(words, strings.Fields(strings.ToLower(lp.Name))...)
		}
		for _, tag := range p.Tags {
			words = append(words, strings.Fields(strings.ToLower(tag))...)
		}
		for _, w := range words {
			if w = strings.Trim(w, ".,;:!?()\"'"); w != "" {
				vocab[w]++
			}
		}
	}
	e.vocabulary = vocab
}

// matches checks whether a product matches the term on the queried fields and the filters.
func (e *Engine) matches(p *domain.Product, query *domain.Query, termLower string) bool {
	if !p.Published {
		return false
	}
	if query.CategoryID != "" && p.CategoryID != query.CategoryID {
		return false
	}
	if query.ManufacturerID != "" && p.ManufacturerID != query.ManufacturerID {
		return false
	}
	if termLower == "" {
		return true
	}

	for _, field := range query.Fields {
		for _, v := range fieldValues(p, field, query.Language) {
			if strings.Contains(strings.ToLower(v), termLower) {
				return true
			}
		}
	}
	return false
}

// fieldValues returns the product values a searchable field name covers.
func fieldValues(p *domain.Product, field, language string) []string {
	switch field {
	case domain.FieldName:
		return []string{p.Name, p.Localized[language].Name}
	case domain.FieldShortDescription:
		return []string{p.ShortDescription, p.Localized[language].ShortDescription}
	case domain.FieldFullDescription:
		return []string{p.FullDescription}
	case domain.FieldTagName:
		return p.Tags
	case domain.FieldSKU:
		return []string{p.SKU}
	default:
		return nil
	}
}

// sortProducts sorts the matched products based on the sort option.
func (e *Engine) sortProducts(products []domain.Product, sortBy, termLower, language string) {
	switch sortBy {
	case domain.SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price < products[j].Price
		})
	case domain.SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price > products[j].Price
		})
	case domain.SortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		})
	case domain.SortNameAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
		})
	case domain.SortNameDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return strings.ToLower(products[i].Name) > strings.ToLower(products[j].Name)
		})
	default:
		// Relevance: name matches first, otherwise insertion order.
		if termLower == "" {
			return
		}
		sort.SliceStable(products, func(i, j int) bool {
			return nameMatches(&products[i], termLower, language) && !nameMatches(&products[j], termLower, language)
		})
	}
}

func nameMatches(p *domain.Product, termLower, language string) bool {
	for _, v := range fieldValues(p, domain.FieldName, language) {
		if v != "" && strings.Contains(strings.ToLower(v), termLower) {
			return true
		}
	}
	return false
}

// topHits groups products by key and returns one hit per key, most
// frequent first and first-seen order on ties.
func topHits(products []domain.Product, key func(*domain.Product) (string, domain.Hit)) []domain.Hit {
	type bucket struct {
		hit   domain.Hit
		count int
		first int
	}
	buckets := make(map[string]*bucket)
	for i := range products {
		id, hit := key(&products[i])
		if id == "" {
			continue
		}
		if b, ok := buckets[id]; ok {
			b.count++
			continue
		}
		buckets[id] = &bucket{hit: hit, count: 1, first: i}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].first < ordered[j].first
	})

	hits := make([]domain.Hit, 0, min(len(ordered), engine.MaxTopHits))
	for _, b := range ordered {
		if len(hits) == engine.MaxTopHits {
			break
		}
		hits = append(hits, b.hit)
	}
	return hits
}
