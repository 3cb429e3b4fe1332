package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConversionRun records one batch conversion of a spreadsheet into a graph.
type ConversionRun struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	InputPath  string    `json:"input_path"`

	TotalRows    int `json:"total_rows"`
	ExcludedRows int `json:"excluded_rows"`
	Papers       int `json:"papers"`

	// TriplesEmitted counts every triple the mapper produced, duplicates included.
	TriplesEmitted int `json:"triples_emitted"`
	// TriplesDistinct is the size of the resulting graph.
	TriplesDistinct int `json:"triples_distinct"`

	// Summary is the JSON-encoded conversion summary.
	Summary []byte `json:"-"`
}

// Duration returns how long the run took.
func (r *ConversionRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
