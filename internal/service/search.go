package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/engine"
	"github.com/utafrali/storefront-search/internal/i18n"
	"github.com/utafrali/storefront-search/internal/query"
	"github.com/utafrali/storefront-search/internal/visit"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
	"github.com/utafrali/storefront-search/pkg/pagination"
	"github.com/utafrali/storefront-search/pkg/tracing"
)

// ErrInstantSearchDisabled is returned by Instant when instant search is switched off.
var ErrInstantSearchDisabled = apperrors.Disabled("instant search")

// GroupAssembler builds the hit groups shown next to the primary hits.
type GroupAssembler interface {
	Assemble(outcome *domain.Outcome, language string) []domain.HitGroup
}

// Translator resolves localized user-facing messages.
type Translator interface {
	T(lang, key string, args ...any) string
}

// SearchService drives a search request end to end: normalize, execute with
// at most one spell-corrected retry, then assemble hit groups.
type SearchService struct {
	searcher   engine.Searcher
	groups     GroupAssembler
	translator Translator
	visits     visit.Recorder
	settings   domain.Settings
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewSearchService creates a new search service. visits may be nil, in which
// case full searches do not record the last visited page.
func NewSearchService(
	searcher engine.Searcher,
	groups GroupAssembler,
	translator Translator,
	visits visit.Recorder,
	settings domain.Settings,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		searcher:   searcher,
		groups:     groups,
		translator: translator,
		visits:     visits,
		settings:   settings,
		tracer:     tracing.Tracer("storefront-search/service"),
		logger:     logger,
	}
}

// Settings returns the search settings the service was built with.
func (s *SearchService) Settings() domain.Settings {
	return s.settings
}

// Instant runs the lightweight search behind the search box. A missing or
// too short term yields a nil outcome and no error, without touching the backend.
func (s *SearchService) Instant(ctx context.Context, raw domain.RawQuery) (*domain.Outcome, error) {
	if !s.settings.InstantSearchEnabled {
		return nil, ErrInstantSearchDisabled
	}

	q, err := query.Normalize(raw, domain.ModeInstant, s.settings)
	if err != nil {
		var tooShort *query.TermTooShortError
		if errors.As(err, &tooShort) {
			searchRequestsTotal.WithLabelValues(string(domain.ModeInstant), resultTooShort).Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("instant search: %w", err)
	}

	return s.run(ctx, domain.ModeInstant, q)
}

// Search runs the full search. A missing or too short term yields an outcome
// carrying the localized minimum length message, without touching the
// backend. Otherwise page is recorded as the customer's last visited page
// before searching; recording failures are logged and do not fail the search.
func (s *SearchService) Search(ctx context.Context, raw domain.RawQuery, page visit.Page) (*domain.Outcome, error) {
	q, err := query.Normalize(raw, domain.ModeFull, s.settings)
	if err != nil {
		var tooShort *query.TermTooShortError
		if errors.As(err, &tooShort) {
			searchRequestsTotal.WithLabelValues(string(domain.ModeFull), resultTooShort).Inc()
			return s.tooShortOutcome(raw, tooShort), nil
		}
		return nil, fmt.Errorf("search: %w", err)
	}

	s.recordVisit(ctx, page)

	outcome, err := s.run(ctx, domain.ModeFull, q)
	if err != nil {
		return nil, err
	}

	meta := pagination.NewMeta(outcome.TotalCount, q.Page(), q.Limit)
	outcome.Paging = &domain.Paging{
		Page:           meta.Page,
		PerPage:        meta.PerPage,
		TotalPages:     meta.TotalPages,
		HasNext:        meta.HasNext,
		HasPrev:        meta.HasPrev,
		AvailableSizes: slices.Clone(s.settings.PageSizeOptions),
	}
	return outcome, nil
}

func (s *SearchService) tooShortOutcome(raw domain.RawQuery, tooShort *query.TermTooShortError) *domain.Outcome {
	lang := raw.Language
	if lang == "" {
		lang = s.settings.DefaultLanguage
	}
	return &domain.Outcome{
		Term:        strings.TrimSpace(raw.Term),
		Hits:        []domain.Hit{},
		Suggestions: []string{},
		Groups:      []domain.HitGroup{},
		Error:       s.translator.T(lang, i18n.KeyTermMinLength, tooShort.MinLength),
	}
}

func (s *SearchService) recordVisit(ctx context.Context, page visit.Page) {
	if s.visits == nil || page.CustomerID == "" {
		return
	}
	if err := s.visits.RecordLastVisitedPage(ctx, page.CustomerID, page.URL, page.StoreID); err != nil {
		s.logger.WarnContext(ctx, "failed to record last visited page",
			slog.String("customer_id", page.CustomerID),
			slog.String("store_id", page.StoreID),
			slog.String("error", err.Error()),
		)
	}
}

// run executes q and assembles the outcome.
func (s *SearchService) run(ctx context.Context, mode domain.Mode, q domain.Query) (*domain.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "search."+string(mode),
		trace.WithAttributes(attribute.String("search.term", q.Term)),
	)
	defer span.End()

	ex, err := s.execute(ctx, mode, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		searchRequestsTotal.WithLabelValues(string(mode), resultError).Inc()
		return nil, fmt.Errorf("search: %w", err)
	}

	outcome := &domain.Outcome{
		Term:             ex.query.Term,
		AttemptedTerm:    ex.attemptedTerm,
		TotalCount:       ex.result.TotalCount,
		Hits:             ex.result.Hits,
		Suggestions:      ex.suggestions,
		Query:            &ex.query,
		TopCategories:    ex.result.TopCategories,
		TopManufacturers: ex.result.TopManufacturers,
	}
	if outcome.Hits == nil {
		outcome.Hits = []domain.Hit{}
	}
	if outcome.Suggestions == nil {
		outcome.Suggestions = []string{}
	}
	outcome.Groups = s.groups.Assemble(outcome, ex.query.Language)

	span.SetAttributes(
		attribute.Int("search.total", outcome.TotalCount),
		attribute.Bool("search.corrected", outcome.Corrected()),
	)

	result := resultOK
	if outcome.TotalCount == 0 {
		result = resultEmpty
	}
	searchRequestsTotal.WithLabelValues(string(mode), result).Inc()

	return outcome, nil
}

// attempt performs a single backend call.
func (s *SearchService) attempt(ctx context.Context, q domain.Query, n int) (*domain.SearchResult, error) {
	ctx, span := s.tracer.Start(ctx, "search.attempt",
		trace.WithAttributes(
			attribute.String("search.term", q.Term),
			attribute.Int("search.attempt", n),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := s.searcher.Search(ctx, &q)
	backendDuration.WithLabelValues(strconv.Itoa(n)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if result == nil {
		result = &domain.SearchResult{}
	}

	span.SetAttributes(
		attribute.Int("search.total", result.TotalCount),
		attribute.Int("search.suggestions", len(result.Suggestions)),
	)
	s.logger.DebugContext(ctx, "search executed",
		slog.String("term", q.Term),
		slog.Int("attempt", n),
		slog.Int("total", result.TotalCount),
		slog.Int64("took_ms", result.TookMs),
	)

	return result, nil
}
