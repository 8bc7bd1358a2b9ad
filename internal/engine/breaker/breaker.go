package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/engine"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

// Config holds configuration for the search circuit breaker.
type Config struct {
	// Name identifies this breaker (used in metrics and logs).
	Name string

	// MaxRequests is the maximum number of requests allowed in the half-open state.
	// 0 means 1 request is allowed.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing internal counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio is the ratio of failures to total requests that trips the breaker.
	FailureRatio float64

	// MinRequests is the minimum number of requests needed before the failure ratio is evaluated.
	MinRequests uint32
}

// DefaultConfig returns the breaker defaults for a search backend.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var breakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "search_backend_breaker_state",
		Help: "Current state of the search backend circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func init() {
	prometheus.MustRegister(breakerState)
}

// stateToFloat maps gobreaker states to prometheus gauge values.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Searcher guards another engine.Searcher with a circuit breaker. While the
// breaker is open searches fail fast with a 503 AppError.
type Searcher struct {
	next    engine.Searcher
	breaker *gobreaker.CircuitBreaker[*domain.SearchResult]
	logger  *slog.Logger
}

// New wraps next with a circuit breaker configured by cfg.
func New(next engine.Searcher, cfg Config, logger *slog.Logger) *Searcher {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		// A caller giving up says nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("search backend breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &Searcher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*domain.SearchResult](settings),
		logger:  logger,
	}
}

// Search runs query through the breaker.
func (s *Searcher) Search(ctx context.Context, query *domain.Query) (*domain.SearchResult, error) {
	result, err := s.breaker.Execute(func() (*domain.SearchResult, error) {
		return s.next.Search(ctx, query)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.WarnContext(ctx, "search rejected by breaker",
			slog.String("breaker", s.breaker.Name()),
			slog.String("term", query.Term),
		)
		return nil, apperrors.ServiceUnavailable("search backend is unavailable", err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// State returns the current state of the circuit breaker.
func (s *Searcher) State() gobreaker.State {
	return s.breaker.State()
}
