package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/ingest"
	"github.com/helixir/research-graph/internal/mapper"
	"github.com/helixir/research-graph/internal/observability"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/serialize"
)

const fixtureCSV = "Title-题名,Author-作者,Organ-单位,Source-文献来源,Keyword-关键词,Summary-摘要,PubTime-发表时间,URL-网址\n" +
	"Neural Network Optimization,Zhang Wei;Li Na,BUPT;Tsinghua,Journal of Software,graphs;optimization,An abstract,2021-03,https://example.org/p1\n" +
	",Nobody,,,,,,\n" +
	"Database Systems,Zhang Wei,BUPT,,,,Published 2023,\n"

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bupt.csv")
	require.NoError(t, os.WriteFile(path, []byte(fixtureCSV), 0o600))
	return path
}

func newTestConverter(workers int) *Converter {
	return New(Options{Workers: workers}, zerolog.Nop(), nil)
}

func TestRun(t *testing.T) {
	res, err := newTestConverter(0).Run(context.Background(), writeFixture(t))
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, 3, s.TotalRows)
	assert.Equal(t, 1, s.ExcludedRows)
	assert.Equal(t, 2, s.Papers)
	assert.Equal(t, res.Graph.Len(), s.TriplesDistinct)
	assert.Greater(t, s.TriplesEmitted, s.TriplesDistinct, "Zhang Wei's node triples repeat across rows")
	assert.True(t, res.Graph.Frozen())

	assert.Equal(t, EntityCounts{Papers: 2, Authors: 2, Organizations: 2, Journals: 1, Keywords: 2}, s.Entities)

	// Paper identifiers follow the original row position, so the excluded
	// middle row leaves a gap.
	assert.True(t, res.Graph.HasSubject(mapper.PaperIRI(0)))
	assert.False(t, res.Graph.HasSubject(mapper.PaperIRI(1)))
	assert.True(t, res.Graph.HasSubject(mapper.PaperIRI(2)))

	require.Len(t, s.Columns, 8)
	assert.Equal(t, Column{Header: "Title-题名", Index: 0, Field: "title"}, s.Columns[0])
}

func TestRun_FirstPaperExamples(t *testing.T) {
	res, err := newTestConverter(2).Run(context.Background(), writeFixture(t))
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, mapper.PaperIRI(0).Value, s.FirstPaper)
	require.NotEmpty(t, s.Examples)
	assert.Equal(t, Example{Predicate: "rdf:type", Object: "schema:ScholarlyArticle"}, s.Examples[0])
	assert.Len(t, s.Examples, res.Graph.Subgraph(mapper.PaperIRI(0)).Len())
}

func TestRun_PredicateFrequency(t *testing.T) {
	res, err := newTestConverter(0).Run(context.Background(), writeFixture(t))
	require.NoError(t, err)

	preds := res.Summary.Predicates
	require.NotEmpty(t, preds)
	assert.Equal(t, "rdf:type", preds[0].Predicate)
	assert.Equal(t, rdf.Type.Value, preds[0].IRI)
	for i := 1; i < len(preds); i++ {
		prev, cur := preds[i-1], preds[i]
		assert.True(t, prev.Count > cur.Count || (prev.Count == cur.Count && prev.IRI < cur.IRI),
			"predicates out of order at %d", i)
	}
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	path := writeFixture(t)

	var outputs [][]byte
	for _, workers := range []int{1, 3, 16} {
		res, err := newTestConverter(workers).Run(context.Background(), path)
		require.NoError(t, err)
		data, err := serialize.Marshal(res.Graph, serialize.FormatTurtle)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestRun_LoadError(t *testing.T) {
	_, err := newTestConverter(0).Run(context.Background(), filepath.Join(t.TempDir(), "missing.xls"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLoad)
	assert.Contains(t, err.Error(), "missing.xls")
}

func TestRun_CustomReader(t *testing.T) {
	table := &ingest.Table{
		Header: []string{"Title"},
		Rows:   [][]string{{"Only paper"}},
	}
	c := New(Options{Reader: ingest.ReaderFunc(func(context.Context, string) (*ingest.Table, error) {
		return table, nil
	})}, zerolog.Nop(), nil)

	res, err := c.Run(context.Background(), "memory")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Papers)
	assert.Equal(t, "memory", res.Summary.Input)

	boom := errors.New("disk on fire")
	c = New(Options{Reader: ingest.ReaderFunc(func(context.Context, string) (*ingest.Table, error) {
		return nil, boom
	})}, zerolog.Nop(), nil)
	_, err = c.Run(context.Background(), "memory")
	assert.ErrorIs(t, err, boom)
}

func TestConvertTable_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table := &ingest.Table{Header: []string{"Title"}, Rows: [][]string{{"A"}, {"B"}}}
	_, err := newTestConverter(1).ConvertTable(ctx, table, "memory")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertTable_NoValidRows(t *testing.T) {
	table := &ingest.Table{Header: []string{"Title", "Author"}, Rows: [][]string{{"", "Zhang Wei"}}}
	res, err := newTestConverter(0).ConvertTable(context.Background(), table, "memory")
	require.NoError(t, err)

	assert.Equal(t, 0, res.Summary.Papers)
	assert.Equal(t, 1, res.Summary.ExcludedRows)
	assert.Equal(t, 0, res.Graph.Len())
	assert.Empty(t, res.Summary.FirstPaper)
	assert.Equal(t, 0.0, res.Summary.TriplesPerPaper())
}

func TestSummary_Run(t *testing.T) {
	res, err := newTestConverter(0).Run(context.Background(), writeFixture(t))
	require.NoError(t, err)

	run, err := res.Summary.Run()
	require.NoError(t, err)
	assert.Equal(t, res.Summary.RunID, run.ID)
	assert.Equal(t, 2, run.Papers)
	assert.Equal(t, res.Summary.TriplesDistinct, run.TriplesDistinct)

	var decoded Summary
	require.NoError(t, json.Unmarshal(run.Summary, &decoded))
	assert.Equal(t, res.Summary.RunID, decoded.RunID)
	assert.Equal(t, res.Summary.Predicates, decoded.Predicates)
}

func TestWriteReport(t *testing.T) {
	res, err := newTestConverter(0).Run(context.Background(), writeFixture(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, res.Summary))
	out := buf.String()

	assert.Contains(t, out, "RDF Conversion Report")
	assert.Contains(t, out, "Papers:             2")
	assert.Contains(t, out, "Rows excluded:      1 (no title)")
	assert.Contains(t, out, "Title-题名 -> title")
	assert.Contains(t, out, "schema:name")
	assert.Contains(t, out, "First paper ("+mapper.PaperIRI(0).Value+"):")
	assert.Contains(t, out, "rdf:type -> schema:ScholarlyArticle")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestWriteReport_WriteError(t *testing.T) {
	err := WriteReport(failingWriter{}, &Summary{})
	assert.EqualError(t, err, "closed pipe")
}

func TestCut(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "Database Systems", want: "Database Systems"},
		{name: "exact", in: strings.Repeat("a", 50), want: strings.Repeat("a", 50)},
		{name: "long ascii", in: strings.Repeat("a", 60), want: strings.Repeat("a", 50) + "..."},
		{name: "long cjk", in: strings.Repeat("图", 60), want: strings.Repeat("图", 50) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := cut(tt.in, ExampleObjectLimit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestWriteGraphFile(t *testing.T) {
	res, err := newTestConverter(0).Run(context.Background(), writeFixture(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "nested", "graph.ttl")
	require.NoError(t, WriteGraphFile(path, res.Graph, serialize.FormatTurtle))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	loaded, err := serialize.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.Graph.Len(), loaded.Len())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")

	reportPath := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, WriteReportFile(reportPath, res.Summary))
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Distinct triples:")
}

func TestConverter_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics("convert_test")
	c := New(Options{}, zerolog.Nop(), metrics)

	res, err := c.Run(context.Background(), writeFixture(t))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConversionsTotal.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RowsRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsExcluded))
	assert.Equal(t, float64(res.Summary.TriplesEmitted), testutil.ToFloat64(metrics.TriplesEmitted))

	_, err = c.Run(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConversionsTotal.WithLabelValues("failed")))
}
