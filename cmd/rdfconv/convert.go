package main

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/helixir/research-graph/internal/convert"
	"github.com/helixir/research-graph/internal/database"
	"github.com/helixir/research-graph/internal/mapper"
	"github.com/helixir/research-graph/internal/repository"
	"github.com/helixir/research-graph/internal/serialize"
)

type convertFlags struct {
	input       string
	output      string
	format      string
	report      string
	storeCopy   string
	workers     int
	lang        string
	noAffiliate bool
	persist     bool
}

func newConvertCmd(a *app) *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a spreadsheet into an RDF graph",
		Long: `Convert reads a .xls, .xlsx or .csv spreadsheet of papers, maps every row
with a title onto schema.org terms and writes the graph.

The output format follows the output extension (.ttl, .nt, .jsonld) unless
--format is given. A summary report is printed to stdout, or written to
--report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyConvertFlags(cmd, a, &f)
			return runConvert(cmd, a, f.noAffiliate)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.input, "input", "i", "", "Input spreadsheet (default from config)")
	flags.StringVarP(&f.output, "output", "o", "", "Output graph file (default from config)")
	flags.StringVarP(&f.format, "format", "f", "", "Output format: turtle, ntriples or jsonld")
	flags.StringVar(&f.report, "report", "", "Write the summary report to this file instead of stdout")
	flags.StringVar(&f.storeCopy, "store-copy", "", "Also write the graph here for the server to load")
	flags.IntVarP(&f.workers, "workers", "w", 0, "Concurrent row mappers")
	flags.StringVar(&f.lang, "lang", "", `Language tag for text literals ("-" for none)`)
	flags.BoolVar(&f.noAffiliate, "no-affiliation", false, "Do not pair authors with organizations")
	flags.BoolVar(&f.persist, "persist", false, "Store the run in PostgreSQL")
	return cmd
}

// applyConvertFlags overlays explicitly set flags on the loaded config.
func applyConvertFlags(cmd *cobra.Command, a *app, f *convertFlags) {
	c := &a.cfg.Convert
	changed := cmd.Flags().Changed
	if changed("input") {
		c.Input = f.input
	}
	if changed("output") {
		c.Output = f.output
	}
	if changed("format") {
		c.Format = f.format
	}
	if changed("report") {
		c.ReportPath = f.report
	}
	if changed("store-copy") {
		c.StoreCopy = f.storeCopy
	}
	if changed("workers") {
		c.Workers = f.workers
	}
	if changed("lang") {
		c.Lang = f.lang
	}
	if changed("persist") {
		c.Persist = f.persist
	}
}

func runConvert(cmd *cobra.Command, a *app, noAffiliation bool) error {
	c := a.cfg.Convert
	if c.Input == "" {
		return fmt.Errorf("an input spreadsheet is required")
	}
	if c.Output == "" {
		return fmt.Errorf("an output path is required")
	}

	format := serialize.FormatForPath(c.Output)
	if c.Format != "" {
		var err error
		if format, err = serialize.ParseFormat(c.Format); err != nil {
			return err
		}
	}

	opts := convert.Options{
		Workers: c.Workers,
		Mapper: mapper.Options{
			Lang:          c.Lang,
			AbstractLimit: c.AbstractLimit,
			IDLength:      c.IDLength,
		},
	}
	if noAffiliation {
		opts.Mapper.Affiliation = mapper.NoAffiliation
	}

	res, err := convert.New(opts, a.logger, nil).Run(cmd.Context(), c.Input)
	if err != nil {
		return err
	}

	if err := convert.WriteGraphFile(c.Output, res.Graph, format); err != nil {
		return err
	}
	a.logger.Info().Str("path", c.Output).Str("format", string(format)).Msg("graph written")

	if c.StoreCopy != "" {
		copyFormat := serialize.FormatForPath(c.StoreCopy)
		if err := convert.WriteGraphFile(c.StoreCopy, res.Graph, copyFormat); err != nil {
			return err
		}
		a.logger.Info().Str("path", c.StoreCopy).Msg("store copy written")
	}

	if c.ReportPath != "" {
		if err := convert.WriteReportFile(c.ReportPath, res.Summary); err != nil {
			return err
		}
	} else if err := convert.WriteReport(cmd.OutOrStdout(), res.Summary); err != nil {
		return err
	}

	if c.Persist {
		return persistRun(cmd, a, res)
	}
	return nil
}

// persistRun stores the run and its triples in one transaction.
func persistRun(cmd *cobra.Command, a *app, res *convert.Result) error {
	run, err := res.Summary.Run()
	if err != nil {
		return err
	}

	db, err := a.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	err = database.InTx(cmd.Context(), db, a.logger, func(tx pgx.Tx) error {
		return repository.NewPgGraphRepository(tx).SaveRun(cmd.Context(), run, res.Graph.Triples())
	})
	if err != nil {
		return fmt.Errorf("persist run: %w", err)
	}
	a.logger.Info().
		Str("run_id", run.ID.String()).
		Int("triples", res.Graph.Len()).
		Dur("duration", time.Since(start)).
		Msg("run persisted")
	return nil
}
