// Package mapper converts normalized publication records into RDF triples
// describing papers, authors, organizations, journals and keywords.
//
// Map is a pure function of its record: entity identifiers are derived from
// content, and the paper identifier from the record's row position, so rows
// may be mapped concurrently once their positions are fixed.
package mapper

import (
	"fmt"
	"strings"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/identity"
	"github.com/helixir/research-graph/internal/rdf"
)

const (
	// DefaultLang is the language tag applied to text literals.
	DefaultLang = "zh"
	// DefaultAbstractLimit is the maximum abstract length in characters.
	DefaultAbstractLimit = 1000
)

// Options configures a Mapper. Zero values select the defaults.
type Options struct {
	// Lang is the language tag for text literals. Use NoLang for untagged literals.
	Lang string
	// AbstractLimit is the abstract truncation length in characters.
	AbstractLimit int
	// IDLength is the length of derived entity identifiers.
	IDLength int
	// Affiliation pairs authors with organizations. Defaults to PositionalAffiliation.
	Affiliation AffiliationPolicy
}

// NoLang disables language tags on text literals.
const NoLang = "-"

// Mapper maps records to triples.
type Mapper struct {
	lang          string
	abstractLimit int
	ids           identity.Deriver
	affiliation   AffiliationPolicy
}

// New creates a Mapper.
func New(opts Options) *Mapper {
	m := &Mapper{
		lang:          opts.Lang,
		abstractLimit: opts.AbstractLimit,
		ids:           identity.NewDeriver(opts.IDLength),
		affiliation:   opts.Affiliation,
	}
	switch m.lang {
	case "":
		m.lang = DefaultLang
	case NoLang:
		m.lang = ""
	}
	if m.abstractLimit <= 0 {
		m.abstractLimit = DefaultAbstractLimit
	}
	if m.affiliation == nil {
		m.affiliation = PositionalAffiliation
	}
	return m
}

// PaperIRI returns the identifier of the paper built from the row at the
// given zero-based position.
func PaperIRI(row int) rdf.Term {
	return rdf.BUPT.Term(fmt.Sprintf("paper_%04d", row+1))
}

// AuthorIRI returns the identifier of the named author.
func (m *Mapper) AuthorIRI(name string) rdf.Term {
	return m.entity(domain.KindAuthor, name)
}

// OrganizationIRI returns the identifier of the named organization.
func (m *Mapper) OrganizationIRI(name string) rdf.Term {
	return m.entity(domain.KindOrganization, name)
}

// JournalIRI returns the identifier of the named journal.
func (m *Mapper) JournalIRI(name string) rdf.Term {
	return m.entity(domain.KindJournal, name)
}

// KeywordIRI returns the identifier of the keyword.
func (m *Mapper) KeywordIRI(term string) rdf.Term {
	return m.entity(domain.KindKeyword, term)
}

func (m *Mapper) entity(kind domain.EntityKind, text string) rdf.Term {
	return rdf.BUPT.Term(string(kind) + "/" + m.ids.Derive(text))
}

func (m *Mapper) text(v string) rdf.Term {
	return rdf.LangLiteral(v, m.lang)
}

// Map returns the paper identifier for rec and the triples describing it.
// Absent fields skip their step; Map never fails. Callers filter out rows
// without a title before mapping.
func (m *Mapper) Map(rec domain.Record) (rdf.Term, []rdf.Triple) {
	paper := PaperIRI(rec.Row)
	e := emitter{out: make([]rdf.Triple, 0, 16+8*len(rec.Authors)+6*len(rec.Keywords))}

	e.add(paper, rdf.Type, rdf.ScholarlyArticle)

	if v := strings.TrimSpace(rec.SourceDatabase); v != "" {
		e.add(paper, rdf.DCType, m.text(v))
		e.add(paper, rdf.SourceDatabase, m.text(v))
	}

	if v := strings.TrimSpace(rec.Title); v != "" {
		e.add(paper, rdf.DCTitle, m.text(v))
		e.add(paper, rdf.SchemaName, m.text(v))
	}

	m.mapAuthors(&e, paper, rec)
	m.mapJournal(&e, paper, rec.Source)
	m.mapKeywords(&e, paper, rec.Keywords)

	if v := strings.TrimSpace(rec.Abstract); v != "" {
		v = Truncate(v, m.abstractLimit)
		e.add(paper, rdf.DCAbstract, m.text(v))
		e.add(paper, rdf.SchemaDescription, m.text(v))
	}

	if year, ok := ExtractYear(rec.PubTime); ok {
		lit := rdf.TypedLiteral(year, rdf.XSDGYear)
		e.add(paper, rdf.DCDate, lit)
		e.add(paper, rdf.SchemaDatePublished, lit)
	}

	if v := strings.TrimSpace(rec.URL); v != "" && IsHTTPURL(v) {
		e.add(paper, rdf.SchemaURL, rdf.TypedLiteral(v, rdf.XSDAnyURI))
	}

	return paper, e.out
}

func (m *Mapper) mapAuthors(e *emitter, paper rdf.Term, rec domain.Record) {
	for _, a := range m.affiliation(rec.Authors, rec.Organizations) {
		name := identity.Normalize(a.Author)
		if name == "" {
			continue
		}
		author := m.AuthorIRI(name)
		e.add(author, rdf.Type, rdf.Person)
		e.add(author, rdf.FOAFName, m.text(name))
		e.add(author, rdf.SchemaName, m.text(name))
		e.add(paper, rdf.DCCreator, author)
		e.add(paper, rdf.SchemaAuthor, author)
		e.add(author, rdf.FOAFMade, paper)

		orgName := identity.Normalize(a.Organization)
		if orgName == "" {
			continue
		}
		org := m.OrganizationIRI(orgName)
		e.add(org, rdf.Type, rdf.Organization)
		e.add(org, rdf.SchemaName, m.text(orgName))
		e.add(author, rdf.SchemaAffiliation, org)
		e.add(org, rdf.SchemaMember, author)
	}
}

func (m *Mapper) mapJournal(e *emitter, paper rdf.Term, source string) {
	name := identity.Normalize(source)
	if name == "" {
		return
	}
	journal := m.JournalIRI(name)
	e.add(journal, rdf.Type, rdf.Periodical)
	e.add(journal, rdf.Type, rdf.PublicationVolume)
	e.add(journal, rdf.SchemaName, m.text(name))
	e.add(journal, rdf.DCTitle, m.text(name))
	e.add(paper, rdf.DCSource, journal)
	e.add(paper, rdf.SchemaIsPartOf, journal)
	e.add(journal, rdf.SchemaHasPart, paper)
}

func (m *Mapper) mapKeywords(e *emitter, paper rdf.Term, keywords []string) {
	for _, k := range keywords {
		term := identity.Normalize(k)
		if term == "" {
			continue
		}
		kw := m.KeywordIRI(term)
		e.add(kw, rdf.Type, rdf.DefinedTerm)
		e.add(kw, rdf.SchemaName, m.text(term))
		e.add(kw, rdf.SchemaTermCode, m.text(term))
		e.add(paper, rdf.SchemaKeywords, kw)
		e.add(paper, rdf.SchemaAbout, kw)
		e.add(kw, rdf.SchemaIsRelatedTo, paper)
	}
}

type emitter struct {
	out []rdf.Triple
}

func (e *emitter) add(s, p, o rdf.Term) {
	e.out = append(e.out, rdf.T(s, p, o))
}
