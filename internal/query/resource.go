package query

import (
	"context"
	"strings"
	"time"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

// Property is one outgoing edge of a resource.
type Property struct {
	Predicate string `json:"predicate"`
	// Label is the predicate in prefix:local form.
	Label string `json:"label"`
	Value string `json:"value"`
	IsIRI bool   `json:"is_uri"`
	Lang  string `json:"lang,omitempty"`
}

// Resource is every triple with one subject.
type Resource struct {
	IRI        string     `json:"uri"`
	Name       string     `json:"name,omitempty"`
	Types      []string   `json:"types"`
	Properties []Property `json:"properties"`

	// Graph holds the same triples for serialization.
	Graph *store.Graph `json:"-"`
}

// PropertyCount returns the number of outgoing edges.
func (r *Resource) PropertyCount() int { return len(r.Properties) }

// ResourceIRI maps the path segments of /research/{type}/{id} to the
// resource identifier. Papers use "paper_<id>", every other kind "<kind>/<id>".
func ResourceIRI(kind, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/?#") {
		return "", domain.NewValidationError("id", "invalid resource id")
	}
	k := domain.EntityKind(kind)
	if !k.Valid() {
		return "", domain.NewValidationError("type", "unknown resource type "+kind)
	}
	if k == domain.KindPaper {
		return rdf.BUPT.IRI("paper_" + id), nil
	}
	return rdf.BUPT.IRI(kind + "/" + id), nil
}

// Resource returns the triples whose subject is iri.
func (s *Service) Resource(ctx context.Context, iri string) (r *Resource, err error) {
	start := time.Now()
	defer func() {
		n := 0
		if r != nil {
			n = len(r.Properties)
		}
		s.observe("resource", start, n, err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	subject := rdf.IRI(iri)
	if !s.graph.HasSubject(subject) {
		return nil, domain.NewNotFoundError("resource", iri)
	}

	sub := s.graph.Subgraph(subject)
	r = &Resource{IRI: iri, Graph: sub, Types: []string{}}
	for _, t := range sub.Triples() {
		r.Properties = append(r.Properties, Property{
			Predicate: t.P.Value,
			Label:     rdf.Compact(t.P.Value),
			Value:     t.O.Value,
			IsIRI:     t.O.IsIRI(),
			Lang:      t.O.Lang,
		})
		switch {
		case t.P == rdf.Type && t.O.IsIRI():
			r.Types = append(r.Types, t.O.Value)
		case r.Name == "" && (t.P == rdf.SchemaName || t.P == rdf.FOAFName):
			r.Name = t.O.Value
		}
	}
	return r, nil
}
