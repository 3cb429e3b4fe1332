package store

import (
	"sort"

	"github.com/helixir/research-graph/internal/rdf"
)

// PredicateCount is the number of triples using one predicate.
type PredicateCount struct {
	Predicate rdf.Term
	Count     int
}

// PredicateFrequency returns predicate usage sorted by count descending and
// then by predicate IRI.
func (g *Graph) PredicateFrequency() []PredicateCount {
	out := make([]PredicateCount, 0, len(g.byPredicate))
	for p, idx := range g.byPredicate {
		out = append(out, PredicateCount{Predicate: p, Count: len(idx)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Predicate.Value < out[j].Predicate.Value
	})
	return out
}

// Predicates returns the distinct predicates in order of first appearance.
func (g *Graph) Predicates() []rdf.Term {
	out := make([]rdf.Term, 0, len(g.byPredicate))
	seen := make(map[rdf.Term]struct{}, len(g.byPredicate))
	for _, t := range g.triples {
		if _, ok := seen[t.P]; ok {
			continue
		}
		seen[t.P] = struct{}{}
		out = append(out, t.P)
	}
	return out
}

// CountOfType returns the number of distinct subjects typed with class.
func (g *Graph) CountOfType(class rdf.Term) int {
	return len(g.Subjects(rdf.Type, class))
}
