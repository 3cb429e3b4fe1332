package mapper

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/identity"
	"github.com/helixir/research-graph/internal/rdf"
)

func objects(triples []rdf.Triple, s, p rdf.Term) []rdf.Term {
	var out []rdf.Term
	for _, t := range triples {
		if t.S == s && t.P == p {
			out = append(out, t.O)
		}
	}
	return out
}

func count(triples []rdf.Triple, s, p rdf.Term) int {
	return len(objects(triples, s, p))
}

func TestPaperIRI(t *testing.T) {
	assert.Equal(t, "http://bupt.edu.cn/research/paper_0001", PaperIRI(0).Value)
	assert.Equal(t, "http://bupt.edu.cn/research/paper_0045", PaperIRI(44).Value)
	assert.Equal(t, "http://bupt.edu.cn/research/paper_12345", PaperIRI(12344).Value)
}

func TestMap_TitleOnly(t *testing.T) {
	m := New(Options{})
	paper, triples := m.Map(domain.Record{Row: 2, Title: "Database Systems"})

	assert.Equal(t, PaperIRI(2), paper)
	require.Len(t, triples, 3)
	assert.Equal(t, rdf.T(paper, rdf.Type, rdf.ScholarlyArticle), triples[0])
	assert.Equal(t, []rdf.Term{rdf.LangLiteral("Database Systems", "zh")}, objects(triples, paper, rdf.DCTitle))
	assert.Equal(t, []rdf.Term{rdf.LangLiteral("Database Systems", "zh")}, objects(triples, paper, rdf.SchemaName))
}

func TestMap_FullRecord(t *testing.T) {
	m := New(Options{})
	rec := domain.Record{
		Row:            0,
		SourceDatabase: "期刊",
		Title:          "Neural Network Optimization",
		Authors:        []string{"Zhang Wei", "Li Na", "Wang Fang"},
		Organizations:  []string{"BUPT", "Tsinghua"},
		Source:         "Journal of Networks",
		Keywords:       []string{"neural networks", "", "optimization"},
		Abstract:       "An abstract.",
		PubTime:        "Published in 2023, revised 2024",
		URL:            "https://example.org/paper",
	}

	paper, triples := m.Map(rec)

	t.Run("source database under two predicates", func(t *testing.T) {
		assert.Equal(t, []rdf.Term{rdf.LangLiteral("期刊", "zh")}, objects(triples, paper, rdf.DCType))
		assert.Equal(t, []rdf.Term{rdf.LangLiteral("期刊", "zh")}, objects(triples, paper, rdf.SourceDatabase))
	})

	t.Run("authors in order with inverse links", func(t *testing.T) {
		creators := objects(triples, paper, rdf.DCCreator)
		require.Len(t, creators, 3)
		assert.Equal(t, m.AuthorIRI("Zhang Wei"), creators[0])
		assert.Equal(t, m.AuthorIRI("Li Na"), creators[1])
		assert.Equal(t, m.AuthorIRI("Wang Fang"), creators[2])
		assert.Equal(t, creators, objects(triples, paper, rdf.SchemaAuthor))

		for _, a := range creators {
			assert.Equal(t, []rdf.Term{rdf.Person}, objects(triples, a, rdf.Type))
			assert.Equal(t, []rdf.Term{paper}, objects(triples, a, rdf.FOAFMade))
		}
		assert.Equal(t, "http://bupt.edu.cn/research/author/"+identity.Derive("Zhang Wei"), creators[0].Value)
	})

	t.Run("positional affiliation", func(t *testing.T) {
		bupt := m.OrganizationIRI("BUPT")
		tsinghua := m.OrganizationIRI("Tsinghua")
		assert.Equal(t, []rdf.Term{bupt}, objects(triples, m.AuthorIRI("Zhang Wei"), rdf.SchemaAffiliation))
		assert.Equal(t, []rdf.Term{tsinghua}, objects(triples, m.AuthorIRI("Li Na"), rdf.SchemaAffiliation))
		assert.Empty(t, objects(triples, m.AuthorIRI("Wang Fang"), rdf.SchemaAffiliation))
		assert.Equal(t, []rdf.Term{m.AuthorIRI("Zhang Wei")}, objects(triples, bupt, rdf.SchemaMember))
		assert.Equal(t, []rdf.Term{rdf.Organization}, objects(triples, bupt, rdf.Type))
	})

	t.Run("journal", func(t *testing.T) {
		j := m.JournalIRI("Journal of Networks")
		assert.Equal(t, []rdf.Term{rdf.Periodical, rdf.PublicationVolume}, objects(triples, j, rdf.Type))
		assert.Equal(t, []rdf.Term{j}, objects(triples, paper, rdf.DCSource))
		assert.Equal(t, []rdf.Term{j}, objects(triples, paper, rdf.SchemaIsPartOf))
		assert.Equal(t, []rdf.Term{paper}, objects(triples, j, rdf.SchemaHasPart))
		assert.Equal(t, 1, count(triples, j, rdf.DCTitle))
	})

	t.Run("keywords skip empty tokens", func(t *testing.T) {
		kws := objects(triples, paper, rdf.SchemaKeywords)
		require.Len(t, kws, 2)
		assert.Equal(t, m.KeywordIRI("neural networks"), kws[0])
		assert.Equal(t, kws, objects(triples, paper, rdf.SchemaAbout))
		assert.Equal(t, []rdf.Term{paper}, objects(triples, kws[1], rdf.SchemaIsRelatedTo))
		assert.Equal(t, []rdf.Term{rdf.LangLiteral("optimization", "zh")}, objects(triples, kws[1], rdf.SchemaTermCode))
	})

	t.Run("first year wins", func(t *testing.T) {
		year := rdf.TypedLiteral("2023", rdf.XSDGYear)
		assert.Equal(t, []rdf.Term{year}, objects(triples, paper, rdf.DCDate))
		assert.Equal(t, []rdf.Term{year}, objects(triples, paper, rdf.SchemaDatePublished))
	})

	t.Run("url typed", func(t *testing.T) {
		assert.Equal(t, []rdf.Term{rdf.TypedLiteral("https://example.org/paper", rdf.XSDAnyURI)}, objects(triples, paper, rdf.SchemaURL))
	})

	t.Run("exactly one type triple for the paper", func(t *testing.T) {
		assert.Equal(t, 1, count(triples, paper, rdf.Type))
	})
}

func TestMap_DegradesGracefully(t *testing.T) {
	m := New(Options{})
	rec := domain.Record{
		Row:           4,
		Title:         "Title",
		Authors:       []string{"", "Li Na"},
		Organizations: []string{"BUPT", ""},
		PubTime:       "unknown date",
		URL:           "ftp://files.example.org/x",
	}

	paper, triples := m.Map(rec)

	assert.Equal(t, []rdf.Term{m.AuthorIRI("Li Na")}, objects(triples, paper, rdf.DCCreator))
	assert.Empty(t, objects(triples, m.AuthorIRI("Li Na"), rdf.SchemaAffiliation))
	assert.Empty(t, objects(triples, paper, rdf.DCDate))
	assert.Empty(t, objects(triples, paper, rdf.SchemaURL))
	for _, tr := range triples {
		assert.NotEqual(t, rdf.Organization, tr.O, "no organization should be emitted")
	}
}

func TestMap_Deterministic(t *testing.T) {
	rec := domain.Record{Title: "T", Authors: []string{"Zhang Wei"}, Keywords: []string{"rdf"}}
	_, a := New(Options{}).Map(rec)
	_, b := New(Options{}).Map(rec)
	assert.Equal(t, a, b)
}

func TestMap_Options(t *testing.T) {
	t.Run("no language tag", func(t *testing.T) {
		_, triples := New(Options{Lang: NoLang}).Map(domain.Record{Title: "T"})
		assert.Equal(t, rdf.Literal("T"), triples[1].O)
	})

	t.Run("custom language tag", func(t *testing.T) {
		_, triples := New(Options{Lang: "en"}).Map(domain.Record{Title: "T"})
		assert.Equal(t, rdf.LangLiteral("T", "en"), triples[1].O)
	})

	t.Run("swappable affiliation policy", func(t *testing.T) {
		m := New(Options{Affiliation: NoAffiliation})
		_, triples := m.Map(domain.Record{Title: "T", Authors: []string{"A"}, Organizations: []string{"O"}})
		assert.Empty(t, objects(triples, m.AuthorIRI("A"), rdf.SchemaAffiliation))
	})

	t.Run("longer identifiers", func(t *testing.T) {
		m := New(Options{IDLength: 16})
		assert.Len(t, strings.TrimPrefix(m.AuthorIRI("A").Value, rdf.BUPT.IRI("author/")), 16)
	})
}

func TestMap_AbstractTruncation(t *testing.T) {
	m := New(Options{})

	long := strings.Repeat("字", 1500)
	paper, triples := m.Map(domain.Record{Title: "T", Abstract: long})
	got := objects(triples, paper, rdf.DCAbstract)
	require.Len(t, got, 1)
	assert.Equal(t, 1000+len(Ellipsis), utf8.RuneCountInString(got[0].Value))
	assert.True(t, strings.HasSuffix(got[0].Value, Ellipsis))

	short := strings.Repeat("a", 800)
	paper, triples = m.Map(domain.Record{Title: "T", Abstract: short})
	assert.Equal(t, short, objects(triples, paper, rdf.SchemaDescription)[0].Value)
}
