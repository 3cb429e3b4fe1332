// Package main applies the research graph schema migrations.
//
// Migrations are compiled into the binary; -path reads them from a
// directory instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-graph/internal/config"
	"github.com/helixir/research-graph/internal/database"
	"github.com/helixir/research-graph/internal/observability"
	"github.com/helixir/research-graph/migrations"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type actionKind int

const (
	actionUp actionKind = iota + 1
	actionDown
	actionSteps
	actionVersion
	actionForce
)

// action is one parsed command line.
type action struct {
	kind  actionKind
	n     int
	path  string
}

var errNoAction = errors.New("no action specified")

func parseAction(args []string, stderr io.Writer) (action, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	up := fs.Bool("up", false, "Run all pending migrations")
	down := fs.Bool("down", false, "Roll back all migrations")
	steps := fs.Int("steps", 0, "Run N migration steps (positive=up, negative=down)")
	version := fs.Bool("version", false, "Print the current migration version")
	force := fs.Int("force", -1, "Force set migration version (use to recover from failed migrations)")
	path := fs.String("path", "", "Read migrations from this directory instead of the embedded set")
	if err := fs.Parse(args); err != nil {
		return action{}, err
	}

	var picked []action
	if *up {
		picked = append(picked, action{kind: actionUp})
	}
	if *down {
		picked = append(picked, action{kind: actionDown})
	}
	if *steps != 0 {
		picked = append(picked, action{kind: actionSteps, n: *steps})
	}
	if *version {
		picked = append(picked, action{kind: actionVersion})
	}
	if *force >= 0 {
		picked = append(picked, action{kind: actionForce, n: *force})
	}

	switch len(picked) {
	case 0:
		fs.Usage()
		fmt.Fprintln(stderr, "\nPlease specify one of: -up, -down, -steps N, -version, -force V")
		return action{}, errNoAction
	case 1:
		a := picked[0]
		a.path = *path
		return a, nil
	default:
		return action{}, fmt.Errorf("specify only one action at a time")
	}
}

func run(args []string, stderr io.Writer) error {
	act, err := parseAction(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLoggerTo(stderr, observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	dir := cfg.Database.MigrationPath
	if act.path != "" {
		dir = act.path
	}

	var migrator *database.Migrator
	if dir != "" {
		migrator, err = database.NewMigrator(db, dir, logger)
	} else {
		migrator, err = database.NewEmbeddedMigrator(db, migrations.FS, ".", logger)
	}
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := apply(migrator, act); err != nil {
		return err
	}
	logVersion(migrator, logger)
	return nil
}

// schemaMigrator is the part of database.Migrator the actions drive.
type schemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
}

func apply(m schemaMigrator, act action) error {
	switch act.kind {
	case actionUp:
		if err := m.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case actionDown:
		if err := m.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case actionSteps:
		if err := m.Steps(act.n); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case actionForce:
		if err := m.Force(act.n); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	case actionVersion:
	default:
		return errNoAction
	}
	return nil
}

func logVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
