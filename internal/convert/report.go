package convert

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteReport renders the human-readable conversion report.
func WriteReport(w io.Writer, s *Summary) error {
	ew := &errWriter{w: w}

	ew.printf("RDF Conversion Report\n")
	ew.printf("=====================\n")
	ew.printf("Run ID:             %s\n", s.RunID)
	ew.printf("Input:              %s\n", s.Input)
	ew.printf("Generated:          %s\n", s.FinishedAt.Format("2006-01-02 15:04:05"))
	ew.printf("Duration:           %s\n", s.Duration().Round(time.Millisecond))
	ew.printf("\n")
	ew.printf("Rows read:          %d\n", s.TotalRows)
	ew.printf("Rows excluded:      %d (no title)\n", s.ExcludedRows)
	ew.printf("Papers:             %d\n", s.Papers)
	ew.printf("Triples emitted:    %d\n", s.TriplesEmitted)
	ew.printf("Distinct triples:   %d\n", s.TriplesDistinct)
	ew.printf("Triples per paper:  %.1f\n", s.TriplesPerPaper())

	ew.printf("\nEntities:\n")
	ew.printf("  papers:        %d\n", s.Entities.Papers)
	ew.printf("  authors:       %d\n", s.Entities.Authors)
	ew.printf("  organizations: %d\n", s.Entities.Organizations)
	ew.printf("  journals:      %d\n", s.Entities.Journals)
	ew.printf("  keywords:      %d\n", s.Entities.Keywords)

	if len(s.Columns) > 0 {
		ew.printf("\nColumn mapping:\n")
		for _, c := range s.Columns {
			ew.printf("  %s -> %s\n", c.Header, c.Field)
		}
	}

	ew.printf("\nPredicate frequency:\n")
	tw := tabwriter.NewWriter(ew, 0, 4, 2, ' ', 0)
	for _, p := range s.Predicates {
		fmt.Fprintf(tw, "  %s\t%d\n", p.Predicate, p.Count)
	}
	if err := tw.Flush(); err != nil && ew.err == nil {
		ew.err = err
	}

	if s.FirstPaper != "" {
		ew.printf("\nFirst paper (%s):\n", s.FirstPaper)
		for _, e := range s.Examples {
			ew.printf("  %s -> %s\n", e.Predicate, e.Object)
		}
	}
	return ew.err
}

// errWriter remembers the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
