package serialize

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

var (
	paper  = rdf.BUPT.Term("paper_0001")
	author = rdf.BUPT.Term("author/1a2b3c4d")
)

func sampleGraph() *store.Graph {
	g := store.New()
	g.Add(rdf.T(paper, rdf.Type, rdf.ScholarlyArticle))
	g.Add(rdf.T(paper, rdf.DCTitle, rdf.LangLiteral(`Graph "Mining"`, "zh")))
	g.Add(rdf.T(paper, rdf.DCCreator, author))
	g.Add(rdf.T(paper, rdf.SchemaDatePublished, rdf.TypedLiteral("2023", rdf.XSDGYear)))
	g.Add(rdf.T(author, rdf.Type, rdf.Person))
	g.Add(rdf.T(author, rdf.FOAFName, rdf.LangLiteral("Zhang Wei", "zh")))
	g.Add(rdf.T(author, rdf.FOAFMade, paper))
	return g
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{in: "ttl", want: FormatTurtle},
		{in: "Turtle", want: FormatTurtle},
		{in: "nt", want: FormatNTriples},
		{in: "json-ld", want: FormatJSONLD},
		{in: "json", want: FormatJSONLD},
		{in: "rdfxml", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFormat(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatTurtle, FormatForPath("out/graph.ttl"))
	assert.Equal(t, FormatNTriples, FormatForPath("graph.NT"))
	assert.Equal(t, FormatJSONLD, FormatForPath("graph.jsonld"))
	assert.Equal(t, FormatTurtle, FormatForPath("graph"))
	assert.Equal(t, ".nt", FormatNTriples.Extension())
	assert.Equal(t, "text/turtle; charset=utf-8", FormatTurtle.MediaType())
	assert.Equal(t, "application/ld+json", FormatJSONLD.MediaType())
}

func TestWriteTurtle(t *testing.T) {
	out, err := Marshal(sampleGraph(), FormatTurtle)
	require.NoError(t, err)

	expected := `@prefix bupt: <http://bupt.edu.cn/research/> .
@prefix bupt-onto: <http://bupt.edu.cn/ontology/> .
@prefix dcterms: <http://purl.org/dc/terms/> .
@prefix foaf: <http://xmlns.com/foaf/0.1/> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix schema: <http://schema.org/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

bupt:paper_0001 a schema:ScholarlyArticle ;
    dcterms:title "Graph \"Mining\""@zh ;
    dcterms:creator <http://bupt.edu.cn/research/author/1a2b3c4d> ;
    schema:datePublished "2023"^^xsd:gYear .

<http://bupt.edu.cn/research/author/1a2b3c4d> a foaf:Person ;
    foaf:name "Zhang Wei"@zh ;
    foaf:made bupt:paper_0001 .
`
	assert.Equal(t, expected, string(out))
}

func TestWriteTurtle_ObjectLists(t *testing.T) {
	g := store.New()
	j := rdf.BUPT.Term("journal/abcd1234")
	g.Add(rdf.T(j, rdf.Type, rdf.Periodical))
	g.Add(rdf.T(j, rdf.Type, rdf.PublicationVolume))

	out, err := Marshal(g, FormatTurtle)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<http://bupt.edu.cn/research/journal/abcd1234> a schema:Periodical,\n        schema:PublicationVolume .\n")
}

func TestWriteNTriples(t *testing.T) {
	out, err := Marshal(sampleGraph(), FormatNTriples)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "<http://bupt.edu.cn/research/paper_0001> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://schema.org/ScholarlyArticle> .", lines[0])
	assert.Equal(t, `<http://bupt.edu.cn/research/paper_0001> <http://schema.org/datePublished> "2023"^^<http://www.w3.org/2001/XMLSchema#gYear> .`, lines[3])
}

func TestWriteJSONLD(t *testing.T) {
	out, err := Marshal(sampleGraph(), FormatJSONLD)
	require.NoError(t, err)

	var doc struct {
		Context map[string]string `json:"@context"`
		Graph   []map[string]any  `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))

	assert.Equal(t, "http://schema.org/", doc.Context["schema"])
	require.Len(t, doc.Graph, 2)

	node := doc.Graph[0]
	assert.Equal(t, paper.Value, node["@id"])
	assert.Equal(t, []any{"http://schema.org/ScholarlyArticle"}, node["@type"])
	assert.Equal(t, []any{map[string]any{"@value": `Graph "Mining"`, "@language": "zh"}}, node[rdf.DCTitle.Value])
	assert.Equal(t, []any{map[string]any{"@id": author.Value}}, node[rdf.DCCreator.Value])
	assert.Equal(t, []any{map[string]any{"@value": "2023", "@type": rdf.XSDGYear}}, node[rdf.SchemaDatePublished.Value])

	assert.True(t, bytes.Index(out, []byte(`"@id"`)) < bytes.Index(out, []byte(`"@type"`)))
}

func TestWrite_Deterministic(t *testing.T) {
	for _, f := range []Format{FormatTurtle, FormatNTriples, FormatJSONLD} {
		a, err := Marshal(sampleGraph(), f)
		require.NoError(t, err)
		b, err := Marshal(sampleGraph(), f)
		require.NoError(t, err)
		assert.Equal(t, a, b, string(f))
	}
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	_, err := Marshal(sampleGraph(), Format("rdfxml"))
	assert.Error(t, err)
}

func TestRead_RoundTrip(t *testing.T) {
	for _, f := range []Format{FormatTurtle, FormatNTriples} {
		t.Run(string(f), func(t *testing.T) {
			src := sampleGraph()
			out, err := Marshal(src, f)
			require.NoError(t, err)

			dst := store.New()
			n, err := Read(bytes.NewReader(out), f, dst)
			require.NoError(t, err)
			assert.Equal(t, src.Len(), n)

			for _, tr := range src.Triples() {
				assert.True(t, dst.Contains(tr), tr.String())
			}
		})
	}
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(strings.NewReader("{}"), FormatJSONLD, store.New())
	assert.Error(t, err)

	_, err = Read(strings.NewReader("<http://a> <http://b> ."), FormatNTriples, store.New())
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "graph.ttl")
	out, err := Marshal(sampleGraph(), FormatTurtle)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o600))

	g, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, g.Len())

	_, err = LoadFile(filepath.Join(dir, "absent.ttl"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLoad))
	assert.Contains(t, err.Error(), "absent.ttl")
}
