package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/helixir/research-graph/internal/query"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/serialize"
)

func newStatsCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print entity and predicate counts of a serialized graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				input = a.cfg.Graph.Path
			}
			g, err := serialize.LoadFile(input)
			if err != nil {
				return err
			}
			stats := query.NewService(g, query.Options{}, a.logger, nil).Statistics()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Graph:\t%s\n", input)
			fmt.Fprintf(w, "Papers:\t%d\n", stats.Papers)
			fmt.Fprintf(w, "Authors:\t%d\n", stats.Authors)
			fmt.Fprintf(w, "Organizations:\t%d\n", stats.Organizations)
			fmt.Fprintf(w, "Journals:\t%d\n", stats.Journals)
			fmt.Fprintf(w, "Keywords:\t%d\n", stats.Keywords)
			fmt.Fprintf(w, "Triples:\t%d\n", stats.Triples)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Predicate\tTriples")
			for _, pc := range g.PredicateFrequency() {
				fmt.Fprintf(w, "%s\t%d\n", rdf.Compact(pc.Predicate.Value), pc.Count)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Serialized graph (default: graph.path from config)")
	return cmd
}
