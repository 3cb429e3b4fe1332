package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/rdf"
)

var runColumnNames = []string{
	"id", "started_at", "finished_at", "input_path", "total_rows", "excluded_rows",
	"papers", "triples_emitted", "triples_distinct", "summary",
}

func newTestRun() *domain.ConversionRun {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &domain.ConversionRun{
		ID:              uuid.New(),
		StartedAt:       started,
		FinishedAt:      started.Add(2 * time.Second),
		InputPath:       "bupt.xls",
		TotalRows:       3,
		ExcludedRows:    1,
		Papers:          2,
		TriplesEmitted:  9,
		TriplesDistinct: 8,
		Summary:         []byte(`{"papers":2}`),
	}
}

func testTriples() []rdf.Triple {
	paper := rdf.IRI("http://bupt.edu.cn/research/paper/0")
	return []rdf.Triple{
		rdf.T(paper, rdf.Type, rdf.ScholarlyArticle),
		rdf.T(paper, rdf.SchemaName, rdf.LangLiteral("图神经网络", "zh")),
		rdf.T(paper, rdf.SchemaDatePublished, rdf.TypedLiteral("2021", rdf.XSDGYear)),
		rdf.T(rdf.Blank("b0"), rdf.SchemaName, rdf.Literal("anon")),
	}
}

func runRow(run *domain.ConversionRun) *pgxmock.Rows {
	return pgxmock.NewRows(runColumnNames).AddRow(
		run.ID, run.StartedAt, run.FinishedAt, run.InputPath,
		run.TotalRows, run.ExcludedRows, run.Papers,
		run.TriplesEmitted, run.TriplesDistinct, run.Summary,
	)
}

// anyRunArgs matches the ten values bound by the conversion_runs insert.
func anyRunArgs() []any {
	args := make([]any, len(runColumnNames))
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestNewPgGraphRepository(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgGraphRepository(mock)
	assert.NotNil(t, repo)
	assert.NotNil(t, repo.db)
}

func TestPgGraphRepository_SaveRun(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts run and copies triples", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		run := newTestRun()
		triples := testTriples()

		mock.ExpectExec("INSERT INTO conversion_runs").
			WithArgs(run.ID, run.StartedAt, run.FinishedAt, run.InputPath,
				run.TotalRows, run.ExcludedRows, run.Papers,
				run.TriplesEmitted, run.TriplesDistinct, run.Summary).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCopyFrom(pgx.Identifier{"triples"}, tripleColumns).
			WillReturnResult(int64(len(triples)))

		require.NoError(t, repo.SaveRun(ctx, run, triples))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("assigns an ID and skips the copy without triples", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		run := newTestRun()
		run.ID = uuid.Nil
		run.Summary = nil

		mock.ExpectExec("INSERT INTO conversion_runs").
			WithArgs(pgxmock.AnyArg(), run.StartedAt, run.FinishedAt, run.InputPath,
				run.TotalRows, run.ExcludedRows, run.Papers,
				run.TriplesEmitted, run.TriplesDistinct, []byte("{}")).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.SaveRun(ctx, run, nil))
		assert.NotEqual(t, uuid.Nil, run.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate run", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		mock.ExpectExec("INSERT INTO conversion_runs").
			WithArgs(anyRunArgs()...).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err = repo.SaveRun(ctx, newTestRun(), testTriples())
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("short copy", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		mock.ExpectExec("INSERT INTO conversion_runs").
			WithArgs(anyRunArgs()...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCopyFrom(pgx.Identifier{"triples"}, tripleColumns).
			WillReturnResult(1)

		err = repo.SaveRun(ctx, newTestRun(), testTriples())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "copied 1 of 4 triples")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil run", func(t *testing.T) {
		repo := NewPgGraphRepository(nil)
		err := repo.SaveRun(ctx, nil, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgGraphRepository_GetRun(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		run := newTestRun()
		mock.ExpectQuery("SELECT .+ FROM conversion_runs WHERE id").
			WithArgs(run.ID).
			WillReturnRows(runRow(run))

		got, err := repo.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.InputPath, got.InputPath)
		assert.Equal(t, 8, got.TriplesDistinct)
		assert.Equal(t, 2*time.Second, got.Duration())
		assert.JSONEq(t, `{"papers":2}`, string(got.Summary))
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		id := uuid.New()
		mock.ExpectQuery("SELECT .+ FROM conversion_runs WHERE id").
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.GetRun(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPgGraphRepository_LatestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("returns newest", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		run := newTestRun()
		mock.ExpectQuery("ORDER BY finished_at DESC LIMIT 1").WillReturnRows(runRow(run))

		got, err := repo.LatestRun(ctx)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
	})

	t.Run("empty table", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		mock.ExpectQuery("ORDER BY finished_at DESC LIMIT 1").WillReturnError(pgx.ErrNoRows)

		_, err = repo.LatestRun(ctx)
		var nf *domain.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "latest", nf.ID)
	})

	t.Run("database error is wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		dbErr := errors.New("connection reset")
		mock.ExpectQuery("ORDER BY finished_at DESC LIMIT 1").WillReturnError(dbErr)

		_, err = repo.LatestRun(ctx)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPgGraphRepository_ListRuns(t *testing.T) {
	ctx := context.Background()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgGraphRepository(mock)
	a, b := newTestRun(), newTestRun()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery("SELECT .+ FROM conversion_runs").
		WithArgs(defaultFilterLimit, 0).
		WillReturnRows(runRow(a).AddRow(
			b.ID, b.StartedAt, b.FinishedAt, b.InputPath,
			b.TotalRows, b.ExcludedRows, b.Papers,
			b.TriplesEmitted, b.TriplesDistinct, b.Summary,
		))

	runs, total, err := repo.ListRuns(ctx, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, runs, 2)
	assert.Equal(t, a.ID, runs[0].ID)
	assert.Equal(t, b.ID, runs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGraphRepository_LoadRun(t *testing.T) {
	ctx := context.Background()

	t.Run("rebuilds graph in ordinal order", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		id := uuid.New()
		want := testTriples()

		rows := pgxmock.NewRows([]string{"subject", "predicate", "object_kind", "object_value", "object_lang", "object_datatype"})
		for _, tr := range want {
			rows.AddRow(encodeNode(tr.S), tr.P.Value, int16(tr.O.Kind), tr.O.Value, tr.O.Lang, tr.O.Datatype)
		}

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("FROM triples").
			WithArgs(id).
			WillReturnRows(rows)

		g, err := repo.LoadRun(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, g.Triples())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown run", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		id := uuid.New()
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		_, err = repo.LoadRun(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("corrupt object kind", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgGraphRepository(mock)
		id := uuid.New()
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("FROM triples").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"subject", "predicate", "object_kind", "object_value", "object_lang", "object_datatype"}).
				AddRow("http://x/s", "http://x/p", int16(9), "v", "", ""))

		_, err = repo.LoadRun(ctx, id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown kind 9")
	})
}

func TestPgGraphRepository_DeleteRun(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "deleted", affected: 1},
		{name: "missing", affected: 0, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewPgGraphRepository(mock)
			id := uuid.New()
			mock.ExpectExec("DELETE FROM conversion_runs").
				WithArgs(id).
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			err = repo.DeleteRun(ctx, id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNodeEncoding(t *testing.T) {
	tests := []struct {
		name string
		term rdf.Term
		enc  string
	}{
		{"iri", rdf.IRI("http://bupt.edu.cn/research/author/ab12cd34"), "http://bupt.edu.cn/research/author/ab12cd34"},
		{"blank", rdf.Blank("n1"), "_:n1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.enc, encodeNode(tt.term))
			assert.Equal(t, tt.term, decodeNode(tt.enc))
		})
	}
}

func TestApplyPaginationDefaults(t *testing.T) {
	limit, offset := 1000, -1
	applyPaginationDefaults(&limit, &offset)
	assert.Equal(t, maxFilterLimit, limit)
	assert.Equal(t, 0, offset)
}
