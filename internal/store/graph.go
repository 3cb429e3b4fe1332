// Package store provides the in-memory triple store that holds the research
// graph.
//
// A Graph is populated by a single writer and then frozen. After Freeze the
// graph is immutable and safe for concurrent readers without locking.
package store

import (
	"errors"
	"sync/atomic"

	"github.com/helixir/research-graph/internal/rdf"
)

// ErrFrozen is the panic value raised when a frozen graph is written to.
var ErrFrozen = errors.New("store: graph is frozen")

// Graph is an insertion-ordered set of triples indexed by subject,
// predicate and object.
type Graph struct {
	triples []rdf.Triple
	seen    map[rdf.Triple]struct{}

	bySubject   map[rdf.Term][]int
	byPredicate map[rdf.Term][]int
	byObject    map[rdf.Term][]int

	frozen atomic.Bool
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		seen:        make(map[rdf.Triple]struct{}),
		bySubject:   make(map[rdf.Term][]int),
		byPredicate: make(map[rdf.Term][]int),
		byObject:    make(map[rdf.Term][]int),
	}
}

// Add inserts t and reports whether it was new. Re-adding an existing triple
// is a no-op. Add panics with ErrFrozen on a frozen graph.
func (g *Graph) Add(t rdf.Triple) bool {
	if g.frozen.Load() {
		panic(ErrFrozen)
	}
	if _, ok := g.seen[t]; ok {
		return false
	}
	i := len(g.triples)
	g.seen[t] = struct{}{}
	g.triples = append(g.triples, t)
	g.bySubject[t.S] = append(g.bySubject[t.S], i)
	g.byPredicate[t.P] = append(g.byPredicate[t.P], i)
	g.byObject[t.O] = append(g.byObject[t.O], i)
	return true
}

// AddAll inserts every triple in ts and returns how many were new.
func (g *Graph) AddAll(ts []rdf.Triple) int {
	n := 0
	for _, t := range ts {
		if g.Add(t) {
			n++
		}
	}
	return n
}

// Freeze makes the graph read-only. It is idempotent.
func (g *Graph) Freeze() {
	g.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (g *Graph) Frozen() bool {
	return g.frozen.Load()
}

// Len returns the number of distinct triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Contains reports whether t is in the graph.
func (g *Graph) Contains(t rdf.Triple) bool {
	_, ok := g.seen[t]
	return ok
}

// Triples returns all triples in insertion order. The returned slice must
// not be modified.
func (g *Graph) Triples() []rdf.Triple {
	return g.triples
}

// ForEach calls fn for each triple in insertion order until fn returns false.
func (g *Graph) ForEach(fn func(rdf.Triple) bool) {
	for _, t := range g.triples {
		if !fn(t) {
			return
		}
	}
}

// Match returns the triples matching the pattern in insertion order.
// A nil term is a wildcard.
func (g *Graph) Match(s, p, o *rdf.Term) []rdf.Triple {
	var out []rdf.Triple
	g.MatchFunc(s, p, o, func(t rdf.Triple) bool {
		out = append(out, t)
		return true
	})
	return out
}

// MatchFunc calls fn for each triple matching the pattern, in insertion
// order, until fn returns false.
func (g *Graph) MatchFunc(s, p, o *rdf.Term, fn func(rdf.Triple) bool) {
	if s != nil && p != nil && o != nil {
		t := rdf.T(*s, *p, *o)
		if g.Contains(t) {
			fn(t)
		}
		return
	}

	idx, all := g.candidates(s, p, o)
	if all {
		for _, t := range g.triples {
			if matches(t, s, p, o) && !fn(t) {
				return
			}
		}
		return
	}
	for _, i := range idx {
		t := g.triples[i]
		if matches(t, s, p, o) && !fn(t) {
			return
		}
	}
}

// candidates picks the smallest index list for the bound positions. all is
// true when no position is bound.
func (g *Graph) candidates(s, p, o *rdf.Term) (idx []int, all bool) {
	best := -1
	consider := func(list []int) {
		if best == -1 || len(list) < best {
			idx = list
			best = len(list)
		}
	}
	if s != nil {
		consider(g.bySubject[*s])
	}
	if p != nil {
		consider(g.byPredicate[*p])
	}
	if o != nil {
		consider(g.byObject[*o])
	}
	return idx, best == -1
}

func matches(t rdf.Triple, s, p, o *rdf.Term) bool {
	return (s == nil || t.S == *s) && (p == nil || t.P == *p) && (o == nil || t.O == *o)
}

// Count returns the number of triples matching the pattern.
func (g *Graph) Count(s, p, o *rdf.Term) int {
	switch {
	case s == nil && p == nil && o == nil:
		return len(g.triples)
	case s != nil && p == nil && o == nil:
		return len(g.bySubject[*s])
	case s == nil && p != nil && o == nil:
		return len(g.byPredicate[*p])
	case s == nil && p == nil && o != nil:
		return len(g.byObject[*o])
	}
	n := 0
	g.MatchFunc(s, p, o, func(rdf.Triple) bool {
		n++
		return true
	})
	return n
}

// Subjects returns the distinct subjects of triples with predicate p and
// object o, in order of first appearance.
func (g *Graph) Subjects(p, o rdf.Term) []rdf.Term {
	var out []rdf.Term
	seen := make(map[rdf.Term]struct{})
	g.MatchFunc(nil, &p, &o, func(t rdf.Triple) bool {
		if _, ok := seen[t.S]; !ok {
			seen[t.S] = struct{}{}
			out = append(out, t.S)
		}
		return true
	})
	return out
}

// Objects returns the objects of triples with subject s and predicate p in
// insertion order.
func (g *Graph) Objects(s, p rdf.Term) []rdf.Term {
	var out []rdf.Term
	g.MatchFunc(&s, &p, nil, func(t rdf.Triple) bool {
		out = append(out, t.O)
		return true
	})
	return out
}

// Value returns the first object of (s, p, ?) and whether one exists.
func (g *Graph) Value(s, p rdf.Term) (rdf.Term, bool) {
	var out rdf.Term
	found := false
	g.MatchFunc(&s, &p, nil, func(t rdf.Triple) bool {
		out = t.O
		found = true
		return false
	})
	return out, found
}

// HasSubject reports whether any triple has s as its subject.
func (g *Graph) HasSubject(s rdf.Term) bool {
	return len(g.bySubject[s]) > 0
}

// Subgraph returns a new graph holding the triples whose subject is s.
func (g *Graph) Subgraph(s rdf.Term) *Graph {
	sub := New()
	for _, i := range g.bySubject[s] {
		sub.Add(g.triples[i])
	}
	return sub
}

// SubjectsOfType returns the distinct subjects typed with class, in order of
// first appearance.
func (g *Graph) SubjectsOfType(class rdf.Term) []rdf.Term {
	return g.Subjects(rdf.Type, class)
}
