package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/repository"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect conversion runs stored in PostgreSQL",
	}
	cmd.AddCommand(newRunsListCmd(a))
	cmd.AddCommand(newRunsShowCmd(a))
	cmd.AddCommand(newRunsDeleteCmd(a))
	return cmd
}

func newRunsListCmd(a *app) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, total, err := repository.NewPgGraphRepository(db).ListRuns(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs, total)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Runs to skip")
	return cmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the stored summary of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			db, err := a.openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := repository.NewPgGraphRepository(db).GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(run.Summary) > 0 {
				_, err = fmt.Fprintf(out, "%s\n", run.Summary)
				return err
			}
			return writeRuns(out, []*domain.ConversionRun{run}, 1)
		},
	}
}

func newRunsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its triples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			db, err := a.openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.NewPgGraphRepository(db).DeleteRun(cmd.Context(), id); err != nil {
				return err
			}
			a.logger.Info().Str("run_id", id.String()).Msg("run deleted")
			return nil
		},
	}
}

func parseRunID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, domain.NewValidationError("run_id", fmt.Sprintf("%q is not a UUID", s))
	}
	return id, nil
}

func writeRuns(out io.Writer, runs []*domain.ConversionRun, total int64) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tFINISHED\tINPUT\tPAPERS\tTRIPLES\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.FinishedAt.Format(time.RFC3339), r.InputPath,
			r.Papers, r.TriplesDistinct, r.Duration().Round(time.Millisecond))
	}
	fmt.Fprintf(w, "\n%d of %d runs\n", len(runs), total)
	return w.Flush()
}
