package sparql

import (
	"context"
	"fmt"

	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

// Prepared is a parsed query with parameter values. Parameters are
// supplied as initial variable bindings, never spliced into query text.
type Prepared struct {
	query  *Query
	params Binding
}

// Prepare parses src for repeated execution.
func Prepare(src string) (*Prepared, error) {
	q, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Prepared{query: q, params: Binding{}}, nil
}

// MustPrepare is Prepare for queries known at compile time.
func MustPrepare(src string) *Prepared {
	p, err := Prepare(src)
	if err != nil {
		panic(fmt.Sprintf("sparql: %v", err))
	}
	return p
}

// Query returns the parsed query.
func (p *Prepared) Query() *Query { return p.query }

// Bind returns a copy of p with ?name bound to value.
func (p *Prepared) Bind(name string, value rdf.Term) *Prepared {
	params := p.params.clone()
	params[name] = value
	return &Prepared{query: p.query, params: params}
}

// BindString binds ?name to a plain literal.
func (p *Prepared) BindString(name, value string) *Prepared {
	return p.Bind(name, rdf.Literal(value))
}

// Exec runs the prepared query against g.
func (p *Prepared) Exec(ctx context.Context, g *store.Graph) (*Results, error) {
	return p.query.Exec(ctx, g, p.params)
}

// QuoteLiteral renders s as a double-quoted literal safe to embed in
// query text.
func QuoteLiteral(s string) string {
	return `"` + rdf.EscapeString(s) + `"`
}
