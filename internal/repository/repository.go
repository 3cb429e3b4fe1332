// Package repository persists conversion runs and their graphs in PostgreSQL.
//
// The in-memory graph is authoritative; the database is an optional mirror
// the server can load from instead of a Turtle file. Triples are stored with
// their insertion ordinal so a reload reproduces the original add order.
//
// Repositories accept a DBTX, so they work on the pool or inside a
// transaction opened with database.InTx:
//
//	err := database.InTx(ctx, db, logger, func(tx pgx.Tx) error {
//	    return repository.NewPgGraphRepository(tx).SaveRun(ctx, run, triples)
//	})
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/research-graph/internal/database"
	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// Pagination defaults for ListRuns.
const (
	defaultFilterLimit = 20
	maxFilterLimit     = 200
)

// GraphRepository stores conversion runs.
type GraphRepository interface {
	// SaveRun inserts run and its triples. Triples keep their slice order.
	SaveRun(ctx context.Context, run *domain.ConversionRun, triples []rdf.Triple) error

	// GetRun returns run metadata by ID.
	GetRun(ctx context.Context, id uuid.UUID) (*domain.ConversionRun, error)

	// LatestRun returns the most recently finished run.
	LatestRun(ctx context.Context) (*domain.ConversionRun, error)

	// ListRuns returns runs newest first with the total count.
	ListRuns(ctx context.Context, limit, offset int) ([]*domain.ConversionRun, int64, error)

	// LoadRun rebuilds the graph stored for a run.
	LoadRun(ctx context.Context, id uuid.UUID) (*store.Graph, error)

	// DeleteRun removes a run and its triples.
	DeleteRun(ctx context.Context, id uuid.UUID) error
}

// applyPaginationDefaults clamps limit to [1, maxFilterLimit] and offset to >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
