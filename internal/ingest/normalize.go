package ingest

import (
	"strings"

	"github.com/helixir/research-graph/internal/domain"
)

// Delimiter separates values in multi-valued cells.
const Delimiter = ";"

// Synonym lists the header tokens recognized for one canonical field.
type Synonym struct {
	Field  domain.Field
	Tokens []string
}

// DefaultSynonyms is the header synonym table in priority order. A header
// matches a field when it contains one of the tokens; earlier entries win.
var DefaultSynonyms = []Synonym{
	{Field: domain.FieldSourceDatabase, Tokens: []string{"SrcDatabase", "来源库"}},
	{Field: domain.FieldTitle, Tokens: []string{"Title", "题名"}},
	{Field: domain.FieldAuthors, Tokens: []string{"Author", "作者"}},
	{Field: domain.FieldOrganizations, Tokens: []string{"Organ", "单位"}},
	{Field: domain.FieldSource, Tokens: []string{"Source", "文献来源"}},
	{Field: domain.FieldKeywords, Tokens: []string{"Keyword", "关键词"}},
	{Field: domain.FieldAbstract, Tokens: []string{"Summary", "摘要"}},
	{Field: domain.FieldYear, Tokens: []string{"PubTime", "发表时间"}},
	{Field: domain.FieldURL, Tokens: []string{"URL", "网址"}},
}

// ColumnMapping records which header column feeds a canonical field.
type ColumnMapping struct {
	Field  domain.Field
	Column int
	Header string
}

// NormalizeResult is the outcome of normalizing a table.
type NormalizeResult struct {
	// Records holds the rows that carry a title, in table order.
	Records []domain.Record
	// Excluded counts rows dropped for lacking a title.
	Excluded int
	// Total is the number of data rows seen before filtering.
	Total int
	// Columns lists the resolved header mapping in field priority order.
	Columns []ColumnMapping
}

// Normalizer maps raw tables onto the canonical record shape.
type Normalizer struct {
	synonyms []Synonym
}

// NewNormalizer creates a Normalizer. A nil table uses DefaultSynonyms.
func NewNormalizer(synonyms []Synonym) *Normalizer {
	if synonyms == nil {
		synonyms = DefaultSynonyms
	}
	return &Normalizer{synonyms: synonyms}
}

// MatchHeader returns the canonical field a header resolves to. Matching is
// a case-sensitive substring test against the synonym tokens, so "Title"
// matches "Paper Title" but not "subtitle".
func (n *Normalizer) MatchHeader(header string) (domain.Field, bool) {
	if header == "" {
		return "", false
	}
	for _, s := range n.synonyms {
		for _, tok := range s.Tokens {
			if strings.Contains(header, tok) {
				return s.Field, true
			}
		}
	}
	return "", false
}

// Columns resolves a header row. When two headers resolve to the same field
// the left-most column wins.
func (n *Normalizer) Columns(header []string) []ColumnMapping {
	byField := make(map[domain.Field]ColumnMapping, len(n.synonyms))
	for i, h := range header {
		f, ok := n.MatchHeader(h)
		if !ok {
			continue
		}
		if _, taken := byField[f]; taken {
			continue
		}
		byField[f] = ColumnMapping{Field: f, Column: i, Header: h}
	}

	out := make([]ColumnMapping, 0, len(byField))
	for _, s := range n.synonyms {
		if m, ok := byField[s.Field]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Normalize converts every data row of t into a Record and drops rows
// without a title. It never fails: unresolvable fields are absent.
func (n *Normalizer) Normalize(t *Table) NormalizeResult {
	cols := n.Columns(t.Header)
	res := NormalizeResult{
		Total:   len(t.Rows),
		Columns: cols,
		Records: make([]domain.Record, 0, len(t.Rows)),
	}

	for r := range t.Rows {
		rec := domain.Record{Row: r}
		for _, c := range cols {
			setField(&rec, c.Field, strings.TrimSpace(t.Cell(r, c.Column)))
		}
		if !rec.HasTitle() {
			res.Excluded++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func setField(rec *domain.Record, f domain.Field, v string) {
	switch f {
	case domain.FieldSourceDatabase:
		rec.SourceDatabase = v
	case domain.FieldTitle:
		rec.Title = v
	case domain.FieldAuthors:
		rec.Authors = SplitList(v)
	case domain.FieldOrganizations:
		rec.Organizations = SplitList(v)
	case domain.FieldSource:
		rec.Source = v
	case domain.FieldKeywords:
		rec.Keywords = SplitList(v)
	case domain.FieldAbstract:
		rec.Abstract = v
	case domain.FieldYear:
		rec.PubTime = v
	case domain.FieldURL:
		rec.URL = v
	}
}

// SplitList splits a multi-valued cell on Delimiter, trimming each token.
// Empty tokens are kept as "" so positions line up across parallel lists.
// An empty cell yields nil.
func SplitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, Delimiter)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
