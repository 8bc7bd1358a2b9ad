package engine

import (
	"context"

	"github.com/utafrali/storefront-search/internal/domain"
)

// Searcher executes normalized queries against a search backend.
// Implementations may use Elasticsearch, in-memory storage, or other backends.
type Searcher interface {
	// Search runs query once and returns the primary hits together with
	// spell corrections and the top matching categories and manufacturers.
	Search(ctx context.Context, query *domain.Query) (*domain.SearchResult, error)
}

// Indexer loads product documents into a backend. Index maintenance is
// owned elsewhere; this exists for fixtures and local development.
type Indexer interface {
	BulkIndex(ctx context.Context, products []domain.Product) error
}

// MaxTopHits is the number of categories and manufacturers a backend reports.
const MaxTopHits = 5

// MaxSuggestions is the number of spell corrections a backend reports.
const MaxSuggestions = 5
