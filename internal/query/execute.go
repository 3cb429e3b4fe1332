package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/sparql"
)

// Result is the outcome of a raw pattern query.
type Result struct {
	// Vars are the projected variables, in projection order.
	Vars []string `json:"vars"`
	// Rows holds each solution's values as display strings; unbound is "".
	Rows [][]string `json:"rows"`
	// Ask is true for ASK queries; Boolean is then the answer.
	Ask     bool `json:"ask"`
	Boolean bool `json:"boolean"`
	// Truncated is true when rows beyond MaxRows were dropped.
	Truncated bool `json:"truncated"`

	// Raw is the engine result, trimmed to the returned rows.
	Raw *sparql.Results `json:"-"`
}

// Execute runs a raw query against the graph under the service timeout.
// Syntax errors wrap domain.ErrInvalidQuery; an expired deadline wraps
// domain.ErrQueryTimeout. Neither affects the graph or other queries.
func (s *Service) Execute(ctx context.Context, src string) (result *Result, err error) {
	start := time.Now()
	defer func() {
		rows := 0
		if result != nil {
			rows = len(result.Rows)
		}
		s.observe("sparql", start, rows, err)
	}()

	if strings.TrimSpace(src) == "" {
		return nil, domain.NewValidationError("query", "query is required")
	}

	q, err := sparql.Parse(src)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	res, err := q.Exec(ctx, s.graph, nil)
	if err != nil {
		return nil, s.wrapExecError(err)
	}

	result = &Result{Vars: res.Vars, Ask: res.Form == sparql.FormAsk, Boolean: res.Boolean}
	if len(res.Bindings) > s.opts.MaxRows {
		res.Bindings = res.Bindings[:s.opts.MaxRows]
		result.Truncated = true
	}
	result.Rows = res.Strings()
	result.Raw = res
	return result, nil
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
