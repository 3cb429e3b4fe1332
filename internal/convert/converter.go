// Package convert runs the batch pipeline that turns a publication
// spreadsheet into a research graph: read, normalize, filter, map rows and
// collect triples in row order.
package convert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/ingest"
	"github.com/helixir/research-graph/internal/mapper"
	"github.com/helixir/research-graph/internal/observability"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

// DefaultWorkers is the number of concurrent row mappers.
const DefaultWorkers = 4

// Options configures a Converter.
type Options struct {
	// Workers bounds concurrent row mapping. Zero selects DefaultWorkers.
	Workers int
	// Mapper configures literal language, abstract length and identifiers.
	Mapper mapper.Options
	// Synonyms overrides the header synonym table.
	Synonyms []ingest.Synonym
	// Reader loads the input file. Defaults to ingest.ReadFile.
	Reader ingest.Reader
}

// Converter converts spreadsheets into graphs.
type Converter struct {
	workers    int
	mapper     *mapper.Mapper
	normalizer *ingest.Normalizer
	reader     ingest.Reader
	logger     zerolog.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// Result is a finished conversion.
type Result struct {
	Graph   *store.Graph
	Summary *Summary
}

// New creates a Converter. metrics may be nil.
func New(opts Options, logger zerolog.Logger, metrics *observability.Metrics) *Converter {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	reader := opts.Reader
	if reader == nil {
		reader = ingest.ReaderFunc(ingest.ReadFile)
	}
	return &Converter{
		workers:    workers,
		mapper:     mapper.New(opts.Mapper),
		normalizer: ingest.NewNormalizer(opts.Synonyms),
		reader:     reader,
		logger:     observability.WithComponent(logger, "converter"),
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run reads inputPath and converts it. A missing or unreadable file is a
// load error; row-level problems never fail the run.
func (c *Converter) Run(ctx context.Context, inputPath string) (*Result, error) {
	started := c.now()
	runID := uuid.New()
	ctx = observability.WithRunID(ctx, runID.String())
	logger := observability.WithConversionContext(c.logger, runID.String(), inputPath)

	table, err := c.reader.Read(ctx, inputPath)
	if err != nil {
		c.metrics.RecordConversion("failed", 0, 0, 0, 0, time.Since(started).Seconds())
		logger.Error().Err(err).Msg("failed to read input")
		return nil, err
	}
	logger.Info().
		Int("rows", len(table.Rows)).
		Strs("headers", table.Header).
		Msg("spreadsheet loaded")

	res, err := c.convert(ctx, logger, runID, started, inputPath, table)
	if err != nil {
		c.metrics.RecordConversion("failed", len(table.Rows), 0, 0, 0, time.Since(started).Seconds())
		return nil, err
	}
	return res, nil
}

// ConvertTable converts an already loaded table.
func (c *Converter) ConvertTable(ctx context.Context, table *ingest.Table, input string) (*Result, error) {
	started := c.now()
	runID := uuid.New()
	logger := observability.WithConversionContext(c.logger, runID.String(), input)
	return c.convert(ctx, logger, runID, started, input, table)
}

func (c *Converter) convert(ctx context.Context, logger zerolog.Logger, runID uuid.UUID, started time.Time, input string, table *ingest.Table) (*Result, error) {
	norm := c.normalizer.Normalize(table)
	logger.Info().
		Int("total_rows", norm.Total).
		Int("valid_rows", len(norm.Records)).
		Int("excluded_rows", norm.Excluded).
		Msg("rows filtered")
	for _, col := range norm.Columns {
		logger.Debug().Str("header", col.Header).Str("field", string(col.Field)).Msg("column mapped")
	}

	mapped, err := c.mapAll(ctx, norm.Records)
	if err != nil {
		return nil, fmt.Errorf("conversion canceled: %w", err)
	}

	g := store.New()
	emitted := 0
	var first rdf.Term
	for i, m := range mapped {
		if i == 0 {
			first = m.paper
		}
		emitted += len(m.triples)
		g.AddAll(m.triples)
	}
	g.Freeze()

	sum := &Summary{
		RunID:           runID,
		Input:           input,
		StartedAt:       started,
		FinishedAt:      c.now(),
		TotalRows:       norm.Total,
		ExcludedRows:    norm.Excluded,
		Papers:          len(mapped),
		TriplesEmitted:  emitted,
		TriplesDistinct: g.Len(),
		Columns:         columnsOf(norm.Columns),
		Entities:        countEntities(g),
		Predicates:      predicatesOf(g),
	}
	if len(mapped) > 0 {
		sum.FirstPaper = first.Value
		sum.Examples = examplesOf(g, first)
	}

	c.metrics.RecordConversion("ok", sum.TotalRows, sum.ExcludedRows, sum.Papers, sum.TriplesEmitted, sum.Duration().Seconds())
	logger.Info().
		Int("papers", sum.Papers).
		Int("triples_emitted", sum.TriplesEmitted).
		Int("triples_distinct", sum.TriplesDistinct).
		Dur("duration", sum.Duration()).
		Msg("conversion completed")

	return &Result{Graph: g, Summary: sum}, nil
}

type mappedRow struct {
	paper   rdf.Term
	triples []rdf.Triple
}

// mapAll maps records concurrently. Each record's slot is fixed before the
// workers start, so the output order is the input order.
func (c *Converter) mapAll(ctx context.Context, records []domain.Record) ([]mappedRow, error) {
	out := make([]mappedRow, len(records))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.workers)
	for i := range records {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			paper, triples := c.mapper.Map(records[i])
			out[i] = mappedRow{paper: paper, triples: triples}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	// Cancellation may stop scheduling before every row has a slot filled.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
