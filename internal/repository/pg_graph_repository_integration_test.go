//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/migrations"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("research_graph"),
		tcpostgres.WithUsername("rgraph"),
		tcpostgres.WithPassword("password"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	src, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	srcErr, dbErr := m.Close()
	require.NoError(t, srcErr)
	require.NoError(t, dbErr)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPgGraphRepository_Integration(t *testing.T) {
	pool := startPostgres(t)
	repo := NewPgGraphRepository(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	older := newTestRun()
	newer := newTestRun()
	newer.StartedAt = older.StartedAt.Add(time.Hour)
	newer.FinishedAt = newer.StartedAt.Add(time.Second)

	triples := testTriples()
	require.NoError(t, repo.SaveRun(ctx, older, triples[:1]))
	require.NoError(t, repo.SaveRun(ctx, newer, triples))

	err := repo.SaveRun(ctx, newer, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	latest, err := repo.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.JSONEq(t, string(newer.Summary), string(latest.Summary))

	g, err := repo.LoadRun(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, triples, g.Triples())

	runs, total, err := repo.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)

	require.NoError(t, repo.DeleteRun(ctx, newer.ID))
	_, err = repo.LoadRun(ctx, newer.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var left int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM triples`).Scan(&left))
	assert.Equal(t, 1, left)
}
