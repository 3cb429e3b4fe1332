package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-graph/internal/domain"
)

func TestNormalizer_MatchHeader(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		header string
		field  domain.Field
		ok     bool
	}{
		{header: "SrcDatabase-来源库", field: domain.FieldSourceDatabase, ok: true},
		{header: "Title-题名", field: domain.FieldTitle, ok: true},
		{header: "题名", field: domain.FieldTitle, ok: true},
		{header: "Author-作者", field: domain.FieldAuthors, ok: true},
		{header: "Organ-单位", field: domain.FieldOrganizations, ok: true},
		{header: "Source-文献来源", field: domain.FieldSource, ok: true},
		{header: "Keyword-关键词", field: domain.FieldKeywords, ok: true},
		{header: "Summary-摘要", field: domain.FieldAbstract, ok: true},
		{header: "PubTime-发表时间", field: domain.FieldYear, ok: true},
		{header: "URL-网址", field: domain.FieldURL, ok: true},
		{header: "Paper Title", field: domain.FieldTitle, ok: true},
		{header: "First Author", field: domain.FieldAuthors, ok: true},
		// Tokens are matched case-sensitively.
		{header: "paper title", ok: false},
		{header: "subtitle", ok: false},
		{header: "resource id", ok: false},
		{header: "TITLE", ok: false},
		// Matches both title and author tokens; title comes first in the table.
		{header: "Title of Author", field: domain.FieldTitle, ok: true},
		{header: "Pages", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			t.Parallel()
			f, ok := n.MatchHeader(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.field, f)
		})
	}
}

func TestNormalizer_Columns_LeftMostWins(t *testing.T) {
	n := NewNormalizer(nil)
	cols := n.Columns([]string{"Pages", "Title-题名", "Author-作者", "Original Title"})

	require.Len(t, cols, 2)
	assert.Equal(t, ColumnMapping{Field: domain.FieldTitle, Column: 1, Header: "Title-题名"}, cols[0])
	assert.Equal(t, ColumnMapping{Field: domain.FieldAuthors, Column: 2, Header: "Author-作者"}, cols[1])
}

func TestNormalizer_Normalize(t *testing.T) {
	table := &Table{
		Header: []string{"Title-题名", "Author-作者", "Organ-单位", "Keyword-关键词", "PubTime-发表时间", "Notes"},
		Rows: [][]string{
			{" Neural Network Optimization ", "Zhang Wei; Li Na", "BUPT;", "graphs;;rdf", "2023-05-01", "x"},
			{"", "Nobody", "", "", "", ""},
			{"Database Systems"},
			{"   ", "Whitespace Title"},
		},
	}

	res := NewNormalizer(nil).Normalize(table)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Excluded)
	require.Len(t, res.Records, 2)

	first := res.Records[0]
	assert.Equal(t, 0, first.Row)
	assert.Equal(t, "Neural Network Optimization", first.Title)
	assert.Equal(t, []string{"Zhang Wei", "Li Na"}, first.Authors)
	assert.Equal(t, []string{"BUPT", ""}, first.Organizations)
	assert.Equal(t, []string{"graphs", "", "rdf"}, first.Keywords)
	assert.Equal(t, "2023-05-01", first.PubTime)
	assert.Empty(t, first.Abstract)

	second := res.Records[1]
	assert.Equal(t, 2, second.Row)
	assert.Equal(t, "Database Systems", second.Title)
	assert.Nil(t, second.Authors)
	assert.Nil(t, second.Keywords)
	assert.Empty(t, second.URL)
}

func TestNormalizer_NoTitleColumn(t *testing.T) {
	table := &Table{
		Header: []string{"Author"},
		Rows:   [][]string{{"Zhang Wei"}, {"Li Na"}},
	}

	res := NewNormalizer(nil).Normalize(table)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Excluded)
	assert.Empty(t, res.Records)
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "blank", input: "  ", want: nil},
		{name: "single", input: "Zhang Wei", want: []string{"Zhang Wei"}},
		{name: "trailing delimiter", input: "a;b;", want: []string{"a", "b", ""}},
		{name: "inner empty kept", input: "a; ;c", want: []string{"a", "", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SplitList(tt.input))
		})
	}
}
