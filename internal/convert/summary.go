package convert

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/ingest"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

// ExampleObjectLimit is the number of characters of an example object kept
// in the report.
const ExampleObjectLimit = 50

// Summary describes a finished conversion.
type Summary struct {
	RunID      uuid.UUID `json:"run_id"`
	Input      string    `json:"input"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	TotalRows    int `json:"total_rows"`
	ExcludedRows int `json:"excluded_rows"`
	Papers       int `json:"papers"`
	// TriplesEmitted counts every triple produced, duplicates included.
	TriplesEmitted int `json:"triples_emitted"`
	// TriplesDistinct is the size of the graph.
	TriplesDistinct int `json:"triples_distinct"`

	Columns    []Column         `json:"columns"`
	Entities   EntityCounts     `json:"entities"`
	Predicates []PredicateUsage `json:"predicates"`

	FirstPaper string    `json:"first_paper,omitempty"`
	Examples   []Example `json:"examples,omitempty"`
}

// Column is one resolved header.
type Column struct {
	Header string `json:"header"`
	Index  int    `json:"index"`
	Field  string `json:"field"`
}

// EntityCounts counts distinct typed nodes.
type EntityCounts struct {
	Papers        int `json:"papers"`
	Authors       int `json:"authors"`
	Organizations int `json:"organizations"`
	Journals      int `json:"journals"`
	Keywords      int `json:"keywords"`
}

// PredicateUsage is the number of distinct triples using one predicate.
type PredicateUsage struct {
	Predicate string `json:"predicate"`
	IRI       string `json:"iri"`
	Count     int    `json:"count"`
}

// Example is one triple of the first paper rendered for the report.
type Example struct {
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Duration returns the run's wall time.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// TriplesPerPaper returns the mean emitted triples per paper.
func (s *Summary) TriplesPerPaper() float64 {
	if s.Papers == 0 {
		return 0
	}
	return float64(s.TriplesEmitted) / float64(s.Papers)
}

// Run converts the summary into a persistable run record.
func (s *Summary) Run() (*domain.ConversionRun, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return &domain.ConversionRun{
		ID:              s.RunID,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		InputPath:       s.Input,
		TotalRows:       s.TotalRows,
		ExcludedRows:    s.ExcludedRows,
		Papers:          s.Papers,
		TriplesEmitted:  s.TriplesEmitted,
		TriplesDistinct: s.TriplesDistinct,
		Summary:         data,
	}, nil
}

func columnsOf(cols []ingest.ColumnMapping) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = Column{Header: c.Header, Index: c.Column, Field: string(c.Field)}
	}
	return out
}

func countEntities(g *store.Graph) EntityCounts {
	return EntityCounts{
		Papers:        g.CountOfType(rdf.ScholarlyArticle),
		Authors:       g.CountOfType(rdf.Person),
		Organizations: g.CountOfType(rdf.Organization),
		Journals:      g.CountOfType(rdf.Periodical),
		Keywords:      g.CountOfType(rdf.DefinedTerm),
	}
}

func predicatesOf(g *store.Graph) []PredicateUsage {
	freq := g.PredicateFrequency()
	out := make([]PredicateUsage, len(freq))
	for i, f := range freq {
		out[i] = PredicateUsage{Predicate: rdf.Compact(f.Predicate.Value), IRI: f.Predicate.Value, Count: f.Count}
	}
	return out
}

func examplesOf(g *store.Graph, paper rdf.Term) []Example {
	var out []Example
	g.MatchFunc(&paper, nil, nil, func(t rdf.Triple) bool {
		obj := t.O.Value
		if t.O.IsIRI() {
			obj = rdf.Compact(obj)
		}
		out = append(out, Example{Predicate: rdf.Compact(t.P.Value), Object: cut(obj, ExampleObjectLimit)})
		return true
	})
	return out
}

// cut keeps the first n characters of s and marks the cut with "...".
func cut(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
