package service

import (
	"context"
	"log/slog"
	"slices"

	"github.com/utafrali/storefront-search/internal/domain"
)

// retryState is a step of the spell-correction protocol.
type retryState int

const (
	// stateSearched: a backend call has completed for the current term.
	stateSearched retryState = iota
	// stateRetryPending: the first call had no hits but offered a correction.
	stateRetryPending
	// stateDone: the outcome is final.
	stateDone
)

// execution tracks one request through searched -> done or
// searched -> retry_pending -> searched -> done.
type execution struct {
	state   retryState
	query   domain.Query
	result  *domain.SearchResult
	retried bool

	// attemptedTerm is set only when a correction was applied.
	attemptedTerm string
	suggestions   []string
}

// execute runs query and, in full mode, when it matches nothing but the
// backend offered corrections, searches once more with the most confident
// correction. Instant searches are sent once and keep their suggestions.
// Backend failures are returned as is; there is no retry for them.
func (s *SearchService) execute(ctx context.Context, mode domain.Mode, query domain.Query) (*execution, error) {
	ex := &execution{query: query}

	result, err := s.attempt(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	ex.result = result
	ex.suggestions = result.Suggestions
	ex.state = stateSearched

	for ex.state != stateDone {
		switch ex.state {
		case stateSearched:
			if mode == domain.ModeFull && !ex.retried && !hasHits(ex.result) && len(ex.result.Suggestions) > 0 {
				ex.state = stateRetryPending
				continue
			}
			ex.state = stateDone

		case stateRetryPending:
			ex.retried = true
			original := ex.query.Term
			originalSuggestions := ex.result.Suggestions
			corrected := ex.query.WithTerm(originalSuggestions[0])

			retry, err := s.attempt(ctx, corrected, 2)
			if err != nil {
				return nil, err
			}

			if hasHits(retry) {
				ex.query = corrected
				ex.result = retry
				ex.attemptedTerm = original
				ex.suggestions = slices.DeleteFunc(slices.Clone(originalSuggestions), func(sug string) bool {
					return sug == corrected.Term
				})
				spellRetriesTotal.WithLabelValues(retryApplied).Inc()
				s.logger.InfoContext(ctx, "spell correction applied",
					slog.String("attempted_term", original),
					slog.String("term", corrected.Term),
					slog.Int("total", retry.TotalCount),
				)
			} else {
				// Keep the term the user typed and the first result.
				spellRetriesTotal.WithLabelValues(retryReverted).Inc()
				s.logger.DebugContext(ctx, "spell correction found nothing, keeping original term",
					slog.String("term", original),
					slog.String("correction", corrected.Term),
				)
			}
			ex.state = stateSearched
		}
	}

	return ex, nil
}

// hasHits reports whether the query matched anything at all. A page past
// the end with a non-zero total counts as a match and is not corrected.
func hasHits(r *domain.SearchResult) bool {
	return r.TotalCount > 0 || len(r.Hits) > 0
}
