// Package query implements the read operations served over the research
// graph: keyword search, paginated listings, resource dereference,
// statistics, relation lookups and raw pattern queries.
//
// A Service wraps a graph that is loaded once and then frozen. All methods
// are safe for concurrent use.
package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/observability"
	"github.com/helixir/research-graph/internal/store"
)

// Defaults for Options.
const (
	DefaultPageSize    = 20
	DefaultSearchLimit = 50
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRows     = 10000
)

// Unknown is reported for an absent author or year.
const Unknown = "Unknown"

// Options tunes a Service.
type Options struct {
	// PageSize is the number of items per listing page.
	PageSize int
	// SearchLimit caps keyword search results.
	SearchLimit int
	// Timeout bounds every raw pattern query.
	Timeout time.Duration
	// MaxRows caps the rows returned by a raw pattern query.
	MaxRows int
}

// DefaultOptions returns the default service options.
func DefaultOptions() Options {
	return Options{
		PageSize:    DefaultPageSize,
		SearchLimit: DefaultSearchLimit,
		Timeout:     DefaultTimeout,
		MaxRows:     DefaultMaxRows,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = d.SearchLimit
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.MaxRows <= 0 {
		o.MaxRows = d.MaxRows
	}
	return o
}

// Service answers queries over one immutable graph.
type Service struct {
	graph   *store.Graph
	opts    Options
	logger  zerolog.Logger
	metrics *observability.Metrics

	papers        func() ([]PaperSummary, error)
	authors       func() ([]EntitySummary, error)
	organizations func() ([]EntitySummary, error)
	stats         func() Statistics
}

// NewService freezes g and returns a Service over it. metrics may be nil.
func NewService(g *store.Graph, opts Options, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	g.Freeze()
	s := &Service{
		graph:   g,
		opts:    opts.withDefaults(),
		logger:  observability.WithComponent(logger, "query"),
		metrics: metrics,
	}
	s.papers = onceListing(s, "list_papers", s.listPapers)
	s.authors = onceListing(s, "list_authors", s.listAuthors)
	s.organizations = onceListing(s, "list_organizations", s.listOrganizations)
	s.stats = sync.OnceValue(s.computeStatistics)
	return s
}

// Graph returns the graph the service reads.
func (s *Service) Graph() *store.Graph {
	return s.graph
}

// Options returns the effective options.
func (s *Service) Options() Options {
	return s.opts
}

// observe records metrics and a debug log line for one operation.
func (s *Service) observe(op string, start time.Time, rows int, err error) {
	status := statusOf(err)
	elapsed := time.Since(start)
	s.metrics.RecordQuery(op, status, rows, elapsed.Seconds())

	ev := s.logger.Debug()
	if status == "timeout" || status == "error" {
		ev = s.logger.Warn().Err(err)
	}
	ev.Str("operation", op).
		Str("status", status).
		Int("rows", rows).
		Dur("duration", elapsed).
		Msg("query finished")
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrQueryTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// onceListing evaluates fn on first use and caches the outcome. The graph
// is frozen, so the result never changes.
func onceListing[T any](s *Service, op string, fn func(context.Context) ([]T, error)) func() ([]T, error) {
	return sync.OnceValues(func() ([]T, error) {
		start := time.Now()
		items, err := fn(context.Background())
		s.observe(op, start, len(items), err)
		return items, err
	})
}
