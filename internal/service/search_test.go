package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/hitgroup"
	"github.com/utafrali/storefront-search/internal/i18n"
	"github.com/utafrali/storefront-search/internal/route"
	"github.com/utafrali/storefront-search/internal/visit"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedSearcher answers per term and records every call it receives.
type scriptedSearcher struct {
	mu      sync.Mutex
	results map[string]*domain.SearchResult
	errs    map[string]error
	queries []domain.Query
	events  *[]string
}

func newScriptedSearcher() *scriptedSearcher {
	return &scriptedSearcher{
		results: make(map[string]*domain.SearchResult),
		errs:    make(map[string]error),
	}
}

func (f *scriptedSearcher) on(term string, result *domain.SearchResult) *scriptedSearcher {
	f.results[term] = result
	return f
}

func (f *scriptedSearcher) fail(term string, err error) *scriptedSearcher {
	f.errs[term] = err
	return f
}

func (f *scriptedSearcher) Search(_ context.Context, q *domain.Query) (*domain.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, *q)
	if f.events != nil {
		*f.events = append(*f.events, "search:"+q.Term)
	}
	if err := f.errs[q.Term]; err != nil {
		return nil, err
	}
	if r, ok := f.results[q.Term]; ok {
		cp := *r
		return &cp, nil
	}
	return &domain.SearchResult{}, nil
}

func (f *scriptedSearcher) terms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.queries))
	for _, q := range f.queries {
		out = append(out, q.Term)
	}
	return out
}

type stubRecorder struct {
	err    error
	pages  []visit.Page
	events *[]string
}

func (r *stubRecorder) RecordLastVisitedPage(_ context.Context, customerID, url, storeID string) error {
	r.pages = append(r.pages, visit.Page{CustomerID: customerID, URL: url, StoreID: storeID})
	if r.events != nil {
		*r.events = append(*r.events, "visit")
	}
	return r.err
}

func productHits(n int) []domain.Hit {
	hits := make([]domain.Hit, 0, n)
	for i := 0; i < n; i++ {
		hits = append(hits, domain.Hit{
			ID:     fmt.Sprintf("p-%d", i),
			Fields: map[string]string{domain.FieldName: fmt.Sprintf("Product %d", i)},
		})
	}
	return hits
}

func withHits(n int) *domain.SearchResult {
	return &domain.SearchResult{Hits: productHits(n), TotalCount: n}
}

func testSettings() domain.Settings {
	return domain.Settings{
		InstantSearchEnabled:          true,
		InstantSearchTermMinLength:    3,
		InstantSearchNumberOfProducts: 10,
		SearchFields:                  []string{domain.FieldName, domain.FieldShortDescription, domain.FieldTagName},
		DefaultPageSize:               24,
		MaxPageSize:                   100,
		PageSizeOptions:               []int{12, 24, 36},
		DefaultLanguage:               "en",
	}
}

func newTestService(t *testing.T, searcher *scriptedSearcher, recorder visit.Recorder, settings domain.Settings) *SearchService {
	t.Helper()
	tr, err := i18n.New("en")
	require.NoError(t, err)
	assembler := hitgroup.NewAssembler(route.NewBuilder("/search"), tr)
	return NewSearchService(searcher, assembler, tr, recorder, settings, newTestLogger())
}

func groupNames(groups []domain.HitGroup) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

// --- Too short terms ---

func TestInstant_TooShortTerm_EmptyResultWithoutBackendCall(t *testing.T) {
	for _, term := range []string{"", "   ", "ab", " ab "} {
		t.Run(fmt.Sprintf("%q", term), func(t *testing.T) {
			searcher := newScriptedSearcher()
			svc := newTestService(t, searcher, nil, testSettings())

			outcome, err := svc.Instant(context.Background(), domain.RawQuery{Term: term})
			require.NoError(t, err)
			assert.Nil(t, outcome)
			assert.Empty(t, searcher.terms())
		})
	}
}

func TestSearch_TooShortTerm_ErrorMessageWithoutBackendCall(t *testing.T) {
	searcher := newScriptedSearcher()
	recorder := &stubRecorder{}
	svc := newTestService(t, searcher, recorder, testSettings())

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "ab"}, visit.Page{CustomerID: "c1", StoreID: "1", URL: "/search?q=ab"})
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, "The search term must be at least 3 characters long.", outcome.Error)
	assert.Equal(t, "ab", outcome.Term)
	assert.Empty(t, outcome.Hits)
	assert.Empty(t, outcome.Groups)
	assert.Empty(t, searcher.terms())
	assert.Empty(t, recorder.pages, "too short terms must not record the visit")
}

func TestSearch_TooShortTerm_LocalizedMessage(t *testing.T) {
	svc := newTestService(t, newScriptedSearcher(), nil, testSettings())

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "a", Language: "de"}, visit.Page{})
	require.NoError(t, err)
	assert.Equal(t, "Der Suchbegriff muss mindestens 3 Zeichen lang sein.", outcome.Error)
}

func TestInstant_Disabled(t *testing.T) {
	settings := testSettings()
	settings.InstantSearchEnabled = false
	searcher := newScriptedSearcher()
	svc := newTestService(t, searcher, nil, settings)

	outcome, err := svc.Instant(context.Background(), domain.RawQuery{Term: "shoes"})
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, ErrInstantSearchDisabled)
	assert.ErrorIs(t, err, apperrors.ErrDisabled)
	assert.Empty(t, searcher.terms())
}

// --- Retry protocol ---

func TestSearch_HitsOnFirstCall_NoRetry(t *testing.T) {
	searcher := newScriptedSearcher().on("shoes", &domain.SearchResult{
		Hits:        productHits(3),
		TotalCount:  3,
		Suggestions: []string{"shoe"},
	})
	svc := newTestService(t, searcher, nil, testSettings())

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoes"}, visit.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"shoes"}, searcher.terms())
	assert.Equal(t, "shoes", outcome.Term)
	assert.Empty(t, outcome.AttemptedTerm)
	assert.False(t, outcome.Corrected())
	assert.Equal(t, 3, outcome.TotalCount)
	assert.Len(t, outcome.Hits, 3)
	assert.Equal(t, []string{"shoe"}, outcome.Suggestions)
}

func TestSearch_NoHitsNoSuggestions_NoRetry(t *testing.T) {
	searcher := newScriptedSearcher().on("xk7qz", &domain.SearchResult{Suggestions: []string{}})
	svc := newTestService(t, searcher, nil, testSettings())

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "xk7qz"}, visit.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"xk7qz"}, searcher.terms())
	assert.Equal(t, "xk7qz", outcome.Term)
	assert.Empty(t, outcome.AttemptedTerm)
	assert.Equal(t, 0, outcome.TotalCount)
	assert.Empty(t, outcome.Suggestions)
	assert.NotContains(t, groupNames(outcome.Groups), domain.GroupSpellChecker)
}

func TestSearch_CorrectionApplied(t *testing.T) {
	searcher := newScriptedSearcher().
		on("shoez", &domain.SearchResult{Suggestions: []string{"shoes", "shoe"}}).
		on("shoes", &domain.SearchResult{
			Hits:          productHits(5),
			TotalCount:    5,
			Suggestions:   []string{"shows"},
			TopCategories: []domain.Hit{{ID: "cat-1", Fields: map[string]string{domain.FieldName: "Footwear"}}},
		})
	svc := newTestService(t, searcher, nil, testSettings())

	before := counterValue(t, spellRetriesTotal.WithLabelValues(retryApplied))

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoez"}, visit.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"shoez", "shoes"}, searcher.terms())
	assert.Equal(t, "shoes", outcome.Term)
	assert.Equal(t, "shoez", outcome.AttemptedTerm)
	assert.True(t, outcome.Corrected())
	assert.Equal(t, 5, outcome.TotalCount)
	assert.Len(t, outcome.Hits, 5)
	assert.Equal(t, []string{"shoe"}, outcome.Suggestions)
	assert.Equal(t, "shoes", outcome.Query.Term)

	require.Equal(t, []string{domain.GroupSpellChecker, domain.GroupTopCategories}, groupNames(outcome.Groups))
	assert.Equal(t, []domain.HitItem{{Label: "shoe", URL: "/search?q=shoe"}}, outcome.Groups[0].Items)
	assert.Equal(t, []domain.HitItem{{Label: "Footwear", URL: "/search?c=cat-1&q=shoes"}}, outcome.Groups[1].Items)

	assert.Equal(t, before+1, counterValue(t, spellRetriesTotal.WithLabelValues(retryApplied)))
}

func TestSearch_CorrectionRemovesEveryCopyOfAppliedTerm(t *testing.T) {
	searcher := newScriptedSearcher().
		on("shoez", &domain.SearchResult{Suggestions: []string{"shoes", "shoe", "shoes"}}).
		on("shoes", withHits(1))
	svc := newTestService(t, searcher, nil, testSettings())

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoez"}, visit.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"shoe"}, outcome.Suggestions)
}

func TestSearch_CorrectionFindsNothing_RevertsTerm(t *testing.T) {
	searcher := newScriptedSearcher().
		on("shoez", &domain.SearchResult{Suggestions: []string{"shoes", "shoe"}}).
		on("shoes", &domain.SearchResult{Suggestions: []string{"shoe"}})
	svc := newTestService(t, searcher, nil, testSettings())

	before := counterValue(t, spellRetriesTotal.WithLabelValues(retryReverted))

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoez"}, visit.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"shoez", "shoes"}, searcher.terms(), "at most one retry")
	assert.Equal(t, "shoez", outcome.Term)
	assert.Empty(t, outcome.AttemptedTerm)
	assert.Equal(t, 0, outcome.TotalCount)
	assert.Empty(t, outcome.Hits)
	assert.Equal(t, []string{"shoes", "shoe"}, outcome.Suggestions)
	assert.Equal(t, "shoez", outcome.Query.Term)

	assert.Equal(t, before+1, counterValue(t, spellRetriesTotal.WithLabelValues(retryReverted)))
}

func TestSearch_RetryUsesFirstSuggestionOnly(t *testing.T) {
	searcher := newScriptedSearcher().
		on("shoez", &domain.SearchResult{Suggestions: []string{"shoe", "shoes"}}).
		on("shoes", withHits(9))
	svc := newTestService(t, searcher, nil, testSettings())

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoez"}, visit.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"shoez", "shoe"}, searcher.terms())
	assert.Equal(t, "shoez", outcome.Term)
	assert.Equal(t, 0, outcome.TotalCount)
}

func TestSearch_RetryKeepsQueryShape(t *testing.T) {
	searcher := newScriptedSearcher().
		on("shoez", &domain.SearchResult{Suggestions: []string{"shoes"}}).
		on("shoes", withHits(1))
	svc := newTestService(t, searcher, nil, testSettings())

	_, err := svc.Search(context.Background(), domain.RawQuery{
		Term:       "shoez",
		Page:       2,
		PerPage:    10,
		Sort:       domain.SortPriceAsc,
		CategoryID: "cat-1",
	}, visit.Page{})
	require.NoError(t, err)

	require.Len(t, searcher.queries, 2)
	first, retry := searcher.queries[0], searcher.queries[1]
	assert.Equal(t, "shoes", retry.Term)
	first.Term = retry.Term
	assert.Equal(t, first, retry)
}

func TestInstant_SingleBackendCallKeepsSuggestions(t *testing.T) {
	searcher := newScriptedSearcher().
		on("shoez", &domain.SearchResult{Suggestions: []string{"shoes", "shoe"}}).
		on("shoes", withHits(5))
	svc := newTestService(t, searcher, nil, testSettings())

	outcome, err := svc.Instant(context.Background(), domain.RawQuery{Term: "shoez"})
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, []string{"shoez"}, searcher.terms(), "instant searches are never retried")
	assert.Equal(t, "shoez", outcome.Term)
	assert.Empty(t, outcome.AttemptedTerm)
	assert.False(t, outcome.Corrected())
	assert.Equal(t, 0, outcome.TotalCount)
	assert.Equal(t, []string{"shoes", "shoe"}, outcome.Suggestions)
	assert.Nil(t, outcome.Paging)
}

func TestSearch_PastTheEndPageIsNotCorrected(t *testing.T) {
	searcher := newScriptedSearcher().
		on("shoes", &domain.SearchResult{TotalCount: 30, Suggestions: []string{"shoe"}})
	svc := newTestService(t, searcher, nil, testSettings())

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoes", Page: 9}, visit.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"shoes"}, searcher.terms())
	assert.Equal(t, "shoes", outcome.Term)
	assert.Empty(t, outcome.AttemptedTerm)
	assert.Empty(t, outcome.Hits)
	assert.Equal(t, 30, outcome.TotalCount)
}

// --- Backend failures ---

func TestSearch_BackendFailurePropagates(t *testing.T) {
	backendErr := errors.New("connection refused")
	searcher := newScriptedSearcher().fail("shoes", backendErr)
	svc := newTestService(t, searcher, nil, testSettings())

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoes"}, visit.Page{})
	assert.Nil(t, outcome)
	require.Error(t, err)
	assert.ErrorIs(t, err, backendErr)
	assert.Contains(t, err.Error(), "search:")
	assert.Equal(t, []string{"shoes"}, searcher.terms(), "backend failures are not retried")
}

func TestSearch_BackendFailureOnRetryPropagates(t *testing.T) {
	backendErr := errors.New("timeout")
	searcher := newScriptedSearcher().
		on("shoez", &domain.SearchResult{Suggestions: []string{"shoes"}}).
		fail("shoes", backendErr)
	svc := newTestService(t, searcher, nil, testSettings())

	_, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoez"}, visit.Page{})
	assert.ErrorIs(t, err, backendErr)
	assert.Equal(t, []string{"shoez", "shoes"}, searcher.terms())
}

func TestInstant_UnavailableBackendKeepsAppError(t *testing.T) {
	searcher := newScriptedSearcher().fail("shoes", apperrors.ServiceUnavailable("search backend is unavailable", nil))
	svc := newTestService(t, searcher, nil, testSettings())

	_, err := svc.Instant(context.Background(), domain.RawQuery{Term: "shoes"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SERVICE_UNAVAILABLE", appErr.Code)
}

// --- Normalization reaching the backend ---

func TestInstant_FieldOverride(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		want   []string
	}{
		{
			name:   "sku disabled",
			fields: []string{domain.FieldName, domain.FieldShortDescription, domain.FieldTagName},
			want:   []string{domain.FieldName, domain.FieldShortDescription, domain.FieldTagName},
		},
		{
			name:   "sku enabled",
			fields: []string{domain.FieldName, domain.FieldSKU},
			want:   []string{domain.FieldName, domain.FieldShortDescription, domain.FieldTagName, domain.FieldSKU},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			settings.SearchFields = tt.fields
			settings.InstantSearchNumberOfProducts = 40
			searcher := newScriptedSearcher().on("shoes", withHits(1))
			svc := newTestService(t, searcher, nil, settings)

			_, err := svc.Instant(context.Background(), domain.RawQuery{
				Term:    "shoes",
				Fields:  []string{domain.FieldSKU, domain.FieldFullDescription},
				PerPage: 50,
				Sort:    domain.SortPriceDesc,
			})
			require.NoError(t, err)

			require.Len(t, searcher.queries, 1)
			q := searcher.queries[0]
			assert.Equal(t, tt.want, q.Fields)
			assert.Equal(t, 16, q.Limit)
			assert.Equal(t, 0, q.Offset)
			assert.Equal(t, domain.SortRelevance, q.Sort)
		})
	}
}

func TestSearch_Paging(t *testing.T) {
	searcher := newScriptedSearcher().on("cable", &domain.SearchResult{Hits: productHits(10), TotalCount: 25})
	svc := newTestService(t, searcher, nil, testSettings())

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "cable", Page: 2, PerPage: 10}, visit.Page{})
	require.NoError(t, err)

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, 10, searcher.queries[0].Offset)
	assert.Equal(t, 10, searcher.queries[0].Limit)

	require.NotNil(t, outcome.Paging)
	assert.Equal(t, domain.Paging{
		Page:           2,
		PerPage:        10,
		TotalPages:     3,
		HasNext:        true,
		HasPrev:        true,
		AvailableSizes: []int{12, 24, 36},
	}, *outcome.Paging)
}

// --- Last visited page ---

func TestSearch_RecordsVisitBeforeSearching(t *testing.T) {
	var events []string
	searcher := newScriptedSearcher().on("shoes", withHits(1))
	searcher.events = &events
	recorder := &stubRecorder{events: &events}
	svc := newTestService(t, searcher, recorder, testSettings())

	page := visit.Page{CustomerID: "cust-1", StoreID: "2", URL: "https://shop.example.com/search?q=shoes"}
	_, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoes"}, page)
	require.NoError(t, err)

	assert.Equal(t, []string{"visit", "search:shoes"}, events)
	assert.Equal(t, []visit.Page{page}, recorder.pages)
}

func TestSearch_VisitFailureDoesNotBlockSearch(t *testing.T) {
	searcher := newScriptedSearcher().on("shoes", withHits(2))
	recorder := &stubRecorder{err: errors.New("redis down")}
	svc := newTestService(t, searcher, recorder, testSettings())

	outcome, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoes"}, visit.Page{CustomerID: "cust-1", StoreID: "1"})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.TotalCount)
	assert.Len(t, recorder.pages, 1)
}

func TestSearch_AnonymousVisitNotRecorded(t *testing.T) {
	recorder := &stubRecorder{}
	svc := newTestService(t, newScriptedSearcher(), recorder, testSettings())

	_, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoes"}, visit.Page{StoreID: "1", URL: "/search?q=shoes"})
	require.NoError(t, err)
	assert.Empty(t, recorder.pages)
}

func TestInstant_NeverRecordsVisit(t *testing.T) {
	recorder := &stubRecorder{}
	svc := newTestService(t, newScriptedSearcher(), recorder, testSettings())

	_, err := svc.Instant(context.Background(), domain.RawQuery{Term: "shoes"})
	require.NoError(t, err)
	assert.Empty(t, recorder.pages)
}

// --- Tracing ---

func TestSearch_SpanPerAttempt(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	searcher := newScriptedSearcher().
		on("shoez", &domain.SearchResult{Suggestions: []string{"shoes"}}).
		on("shoes", withHits(1))
	svc := newTestService(t, searcher, nil, testSettings())

	_, err := svc.Search(context.Background(), domain.RawQuery{Term: "shoez"}, visit.Page{})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"search.attempt", "search.attempt", "search.full"}, names)
}
