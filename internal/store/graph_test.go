package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-graph/internal/rdf"
)

var (
	paper1 = rdf.BUPT.Term("paper_0001")
	paper2 = rdf.BUPT.Term("paper_0002")
	author = rdf.BUPT.Term("author/1a2b3c4d")
)

func sample() *Graph {
	g := New()
	g.Add(rdf.T(paper1, rdf.Type, rdf.ScholarlyArticle))
	g.Add(rdf.T(paper1, rdf.DCTitle, rdf.LangLiteral("Neural Network Optimization", "zh")))
	g.Add(rdf.T(paper1, rdf.DCCreator, author))
	g.Add(rdf.T(author, rdf.Type, rdf.Person))
	g.Add(rdf.T(author, rdf.FOAFName, rdf.LangLiteral("Zhang Wei", "zh")))
	g.Add(rdf.T(paper2, rdf.Type, rdf.ScholarlyArticle))
	g.Add(rdf.T(paper2, rdf.DCTitle, rdf.LangLiteral("Database Systems", "zh")))
	g.Add(rdf.T(paper2, rdf.DCCreator, author))
	return g
}

func TestGraph_AddDeduplicates(t *testing.T) {
	g := New()
	tr := rdf.T(paper1, rdf.DCCreator, author)

	for i := 0; i < 10; i++ {
		added := g.Add(tr)
		assert.Equal(t, i == 0, added)
	}
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Contains(tr))

	n := g.AddAll([]rdf.Triple{tr, rdf.T(paper2, rdf.DCCreator, author)})
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, g.Len())
}

func TestGraph_LiteralIdentity(t *testing.T) {
	g := New()
	g.Add(rdf.T(paper1, rdf.DCTitle, rdf.Literal("T")))
	g.Add(rdf.T(paper1, rdf.DCTitle, rdf.LangLiteral("T", "zh")))
	g.Add(rdf.T(paper1, rdf.DCTitle, rdf.TypedLiteral("T", rdf.XSDString)))
	assert.Equal(t, 2, g.Len(), "xsd:string collapses to the plain literal")
}

func TestGraph_Match(t *testing.T) {
	g := sample()

	t.Run("all wildcards in insertion order", func(t *testing.T) {
		assert.Equal(t, g.Triples(), g.Match(nil, nil, nil))
		assert.Len(t, g.Match(nil, nil, nil), 8)
	})

	t.Run("by subject", func(t *testing.T) {
		got := g.Match(&paper1, nil, nil)
		require.Len(t, got, 3)
		assert.Equal(t, rdf.Type, got[0].P)
		assert.Equal(t, rdf.DCCreator, got[2].P)
	})

	t.Run("by predicate and object", func(t *testing.T) {
		got := g.Match(nil, &rdf.DCCreator, &author)
		require.Len(t, got, 2)
		assert.Equal(t, paper1, got[0].S)
		assert.Equal(t, paper2, got[1].S)
	})

	t.Run("fully bound", func(t *testing.T) {
		assert.Len(t, g.Match(&author, &rdf.Type, &rdf.Person), 1)
		assert.Empty(t, g.Match(&author, &rdf.Type, &rdf.Organization))
	})

	t.Run("unknown term", func(t *testing.T) {
		missing := rdf.IRI("http://example.org/none")
		assert.Empty(t, g.Match(&missing, nil, nil))
		assert.Equal(t, 0, g.Count(&missing, nil, nil))
	})

	t.Run("early stop", func(t *testing.T) {
		n := 0
		g.MatchFunc(nil, nil, nil, func(rdf.Triple) bool {
			n++
			return n < 3
		})
		assert.Equal(t, 3, n)
	})
}

func TestGraph_Accessors(t *testing.T) {
	g := sample()

	assert.Equal(t, []rdf.Term{paper1, paper2}, g.SubjectsOfType(rdf.ScholarlyArticle))
	assert.Equal(t, 2, g.CountOfType(rdf.ScholarlyArticle))
	assert.Equal(t, []rdf.Term{author}, g.Objects(paper2, rdf.DCCreator))

	v, ok := g.Value(author, rdf.FOAFName)
	require.True(t, ok)
	assert.Equal(t, "Zhang Wei", v.Value)

	_, ok = g.Value(author, rdf.SchemaAffiliation)
	assert.False(t, ok)

	assert.True(t, g.HasSubject(author))
	assert.False(t, g.HasSubject(rdf.BUPT.Term("paper_9999")))

	assert.Equal(t, 2, g.Count(nil, &rdf.DCCreator, nil))
	assert.Equal(t, 2, g.Count(nil, &rdf.Type, &rdf.ScholarlyArticle))
}

func TestGraph_Subgraph(t *testing.T) {
	g := sample()
	sub := g.Subgraph(paper2)

	assert.Equal(t, 3, sub.Len())
	for _, tr := range sub.Triples() {
		assert.Equal(t, paper2, tr.S)
	}
	assert.Equal(t, 0, g.Subgraph(rdf.IRI("http://example.org/none")).Len())
}

func TestGraph_Freeze(t *testing.T) {
	g := sample()
	g.Freeze()
	g.Freeze()
	assert.True(t, g.Frozen())

	assert.PanicsWithValue(t, ErrFrozen, func() {
		g.Add(rdf.T(paper1, rdf.SchemaName, rdf.Literal("x")))
	})
	assert.Equal(t, 8, g.Len())
}

func TestGraph_ConcurrentReadsAfterFreeze(t *testing.T) {
	g := New()
	for i := 0; i < 200; i++ {
		g.Add(rdf.T(rdf.BUPT.Term(fmt.Sprintf("paper_%04d", i+1)), rdf.Type, rdf.ScholarlyArticle))
	}
	g.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, 200, g.CountOfType(rdf.ScholarlyArticle))
		}()
	}
	wg.Wait()
}

func TestGraph_PredicateFrequency(t *testing.T) {
	g := sample()

	freq := g.PredicateFrequency()
	require.Len(t, freq, 4)
	assert.Equal(t, PredicateCount{Predicate: rdf.Type, Count: 3}, freq[0])
	// dcterms:creator and dcterms:title tie at 2 and sort by IRI.
	assert.Equal(t, rdf.DCCreator, freq[1].Predicate)
	assert.Equal(t, rdf.DCTitle, freq[2].Predicate)
	assert.Equal(t, PredicateCount{Predicate: rdf.FOAFName, Count: 1}, freq[3])

	assert.Equal(t, []rdf.Term{rdf.Type, rdf.DCTitle, rdf.DCCreator, rdf.FOAFName}, g.Predicates())
}
