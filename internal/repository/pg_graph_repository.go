package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

// Compile-time interface verification.
var _ GraphRepository = (*PgGraphRepository)(nil)

// uniqueViolation is the PostgreSQL error code for a duplicate key.
const uniqueViolation = "23505"

var tripleColumns = []string{
	"run_id", "ordinal", "subject", "predicate",
	"object_kind", "object_value", "object_lang", "object_datatype",
}

const runColumns = `id, started_at, finished_at, input_path, total_rows, excluded_rows,
	papers, triples_emitted, triples_distinct, summary`

// PgGraphRepository is a PostgreSQL implementation of GraphRepository.
type PgGraphRepository struct {
	db DBTX
}

// NewPgGraphRepository creates a new PostgreSQL graph repository.
func NewPgGraphRepository(db DBTX) *PgGraphRepository {
	return &PgGraphRepository{db: db}
}

// SaveRun inserts the run row and bulk copies its triples. Call it inside a
// transaction so a failed copy does not leave a run without triples.
func (r *PgGraphRepository) SaveRun(ctx context.Context, run *domain.ConversionRun, triples []rdf.Triple) error {
	if run == nil {
		return domain.NewValidationError("run", "run cannot be nil")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	summary := run.Summary
	if len(summary) == 0 {
		summary = []byte("{}")
	}

	query := `
		INSERT INTO conversion_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		run.ID,
		run.StartedAt,
		run.FinishedAt,
		run.InputPath,
		run.TotalRows,
		run.ExcludedRows,
		run.Papers,
		run.TriplesEmitted,
		run.TriplesDistinct,
		summary,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: conversion run %s", domain.ErrAlreadyExists, run.ID)
		}
		return fmt.Errorf("failed to insert conversion run: %w", err)
	}

	if len(triples) == 0 {
		return nil
	}

	src := pgx.CopyFromSlice(len(triples), func(i int) ([]any, error) {
		t := triples[i]
		if t.P.Kind != rdf.KindIRI {
			return nil, fmt.Errorf("triple %d: predicate must be an IRI", i)
		}
		return []any{
			run.ID,
			i,
			encodeNode(t.S),
			t.P.Value,
			int16(t.O.Kind),
			t.O.Value,
			t.O.Lang,
			t.O.Datatype,
		}, nil
	})

	n, err := r.db.CopyFrom(ctx, pgx.Identifier{"triples"}, tripleColumns, src)
	if err != nil {
		return fmt.Errorf("failed to copy triples: %w", err)
	}
	if int(n) != len(triples) {
		return fmt.Errorf("copied %d of %d triples", n, len(triples))
	}
	return nil
}

// GetRun retrieves run metadata by ID.
func (r *PgGraphRepository) GetRun(ctx context.Context, id uuid.UUID) (*domain.ConversionRun, error) {
	query := `SELECT ` + runColumns + ` FROM conversion_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("conversion run", id.String())
		}
		return nil, fmt.Errorf("failed to get conversion run: %w", err)
	}
	return run, nil
}

// LatestRun retrieves the run with the newest finish time.
func (r *PgGraphRepository) LatestRun(ctx context.Context) (*domain.ConversionRun, error) {
	query := `SELECT ` + runColumns + ` FROM conversion_runs ORDER BY finished_at DESC LIMIT 1`

	run, err := scanRun(r.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("conversion run", "latest")
		}
		return nil, fmt.Errorf("failed to get latest conversion run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first, together with the total number of runs.
func (r *PgGraphRepository) ListRuns(ctx context.Context, limit, offset int) ([]*domain.ConversionRun, int64, error) {
	applyPaginationDefaults(&limit, &offset)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM conversion_runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversion runs: %w", err)
	}

	query := `SELECT ` + runColumns + ` FROM conversion_runs
		ORDER BY finished_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conversion runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.ConversionRun, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan conversion run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating conversion runs: %w", err)
	}
	return runs, total, nil
}

// LoadRun rebuilds the stored graph in insertion order.
func (r *PgGraphRepository) LoadRun(ctx context.Context, id uuid.UUID) (*store.Graph, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM conversion_runs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check conversion run: %w", err)
	}
	if !exists {
		return nil, domain.NewNotFoundError("conversion run", id.String())
	}

	query := `
		SELECT subject, predicate, object_kind, object_value, object_lang, object_datatype
		FROM triples
		WHERE run_id = $1
		ORDER BY ordinal`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query triples: %w", err)
	}
	defer rows.Close()

	g := store.New()
	for rows.Next() {
		var (
			subject, predicate, value, lang, datatype string
			kind                                      int16
		)
		if err := rows.Scan(&subject, &predicate, &kind, &value, &lang, &datatype); err != nil {
			return nil, fmt.Errorf("failed to scan triple: %w", err)
		}
		obj := rdf.Term{Kind: rdf.TermKind(kind), Value: value, Lang: lang, Datatype: datatype}
		switch obj.Kind {
		case rdf.KindIRI, rdf.KindLiteral, rdf.KindBlank:
		default:
			return nil, fmt.Errorf("triple object has unknown kind %d", kind)
		}
		g.Add(rdf.T(decodeNode(subject), rdf.IRI(predicate), obj))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating triples: %w", err)
	}
	return g, nil
}

// DeleteRun removes a run. Triples go with it through the cascading foreign key.
func (r *PgGraphRepository) DeleteRun(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM conversion_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversion run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("conversion run", id.String())
	}
	return nil
}

// encodeNode stores subjects as the IRI, or "_:label" for blank nodes.
func encodeNode(t rdf.Term) string {
	if t.Kind == rdf.KindBlank {
		return "_:" + t.Value
	}
	return t.Value
}

func decodeNode(s string) rdf.Term {
	if label, ok := strings.CutPrefix(s, "_:"); ok {
		return rdf.Blank(label)
	}
	return rdf.IRI(s)
}

func scanRun(row pgx.Row) (*domain.ConversionRun, error) {
	var run domain.ConversionRun
	err := row.Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt, &run.InputPath,
		&run.TotalRows, &run.ExcludedRows, &run.Papers,
		&run.TriplesEmitted, &run.TriplesDistinct, &run.Summary,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
