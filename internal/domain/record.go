// Package domain provides the canonical record shape and error taxonomy for
// the research graph.
package domain

import "strings"

// Field names a canonical spreadsheet field.
type Field string

// Canonical fields in synonym-priority order.
const (
	FieldSourceDatabase Field = "sourceDatabase"
	FieldTitle          Field = "title"
	FieldAuthors        Field = "authors"
	FieldOrganizations  Field = "organizations"
	FieldSource         Field = "source"
	FieldKeywords       Field = "keywords"
	FieldAbstract       Field = "abstract"
	FieldYear           Field = "year"
	FieldURL            Field = "url"
)

// Fields lists every canonical field in priority order.
var Fields = []Field{
	FieldSourceDatabase,
	FieldTitle,
	FieldAuthors,
	FieldOrganizations,
	FieldSource,
	FieldKeywords,
	FieldAbstract,
	FieldYear,
	FieldURL,
}

// Record is one normalized spreadsheet row.
//
// Absent scalar fields are the empty string and absent list fields are nil.
// List fields keep their positions: an empty token between two delimiters
// is kept as "" so that author i still lines up with organization i.
type Record struct {
	// Row is the zero-based position of the row in the source table,
	// counted before any row was excluded.
	Row int

	SourceDatabase string
	Title          string
	Authors        []string
	Organizations  []string
	Source         string
	Keywords       []string
	Abstract       string
	// PubTime is the raw publication-time text. The year is extracted by the mapper.
	PubTime string
	URL     string
}

// HasTitle reports whether the record carries the mandatory title field.
func (r Record) HasTitle() bool {
	return strings.TrimSpace(r.Title) != ""
}

// EntityKind identifies the kind of node a graph resource describes.
type EntityKind string

// Entity kinds.
const (
	KindPaper        EntityKind = "paper"
	KindAuthor       EntityKind = "author"
	KindOrganization EntityKind = "org"
	KindJournal      EntityKind = "journal"
	KindKeyword      EntityKind = "keyword"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	switch k {
	case KindPaper, KindAuthor, KindOrganization, KindJournal, KindKeyword:
		return true
	default:
		return false
	}
}
