package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/research-graph/internal/config"
	"github.com/helixir/research-graph/internal/database"
	"github.com/helixir/research-graph/internal/observability"
	"github.com/helixir/research-graph/migrations"
)

// app carries what every subcommand needs once the root command has run.
type app struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "rdfconv",
		Short: "Convert research spreadsheets into an RDF knowledge graph",
		Long: `rdfconv converts a spreadsheet of research papers into an RDF graph that
the research-graph server can load.

Examples:
  rdfconv convert -i bupt.xls -o out/complete_bupt_research.ttl
  rdfconv convert -i papers.csv -o graph.nt --report report.txt
  rdfconv convert -i bupt.xlsx --persist
  rdfconv stats -i out/complete_bupt_research.ttl
  rdfconv runs list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./config.yaml if present)")

	root.AddCommand(newConvertCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newRunsCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	// Logs go to stderr so reports and listings on stdout stay clean.
	a.logger = observability.NewLoggerTo(cmd.ErrOrStderr(), observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	}).With().Str("component", "rdfconv").Logger()
	return nil
}

// openDatabase connects and brings the schema up to date.
func (a *app) openDatabase(cmd *cobra.Command) (*database.DB, error) {
	db, err := database.New(cmd.Context(), &a.cfg.Database, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	migrator, err := database.NewEmbeddedMigrator(db, migrations.FS, ".", a.logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			a.logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()
	if err := migrator.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}
