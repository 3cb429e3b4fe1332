package query

import (
	"context"
	"strconv"
	"time"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/rdf"
)

// PapersByAuthor lists the papers credited to the author, in graph order.
func (s *Service) PapersByAuthor(ctx context.Context, authorIRI string) (papers []PaperSummary, err error) {
	start := time.Now()
	defer func() { s.observe("papers_by_author", start, len(papers), err) }()

	author := rdf.IRI(authorIRI)
	if !s.graph.Contains(rdf.T(author, rdf.Type, rdf.Person)) {
		return nil, domain.NewNotFoundError("author", authorIRI)
	}

	res, err := s.run(ctx, papersByAuthorStmt.Bind("author", author))
	if err != nil {
		return nil, err
	}
	return collectPapers(res, 0), nil
}

// OrganizationMembers lists the authors affiliated with the organization.
func (s *Service) OrganizationMembers(ctx context.Context, orgIRI string) (members []EntitySummary, err error) {
	start := time.Now()
	defer func() { s.observe("organization_members", start, len(members), err) }()

	org := rdf.IRI(orgIRI)
	if !s.graph.Contains(rdf.T(org, rdf.Type, rdf.Organization)) {
		return nil, domain.NewNotFoundError("organization", orgIRI)
	}

	res, err := s.run(ctx, organizationMembersStmt.Bind("org", org))
	if err != nil {
		return nil, err
	}
	return collectEntities(res), nil
}

// Coauthors lists the distinct authors sharing a paper with the author,
// excluding the author.
func (s *Service) Coauthors(ctx context.Context, authorIRI string) (coauthors []EntitySummary, err error) {
	start := time.Now()
	defer func() { s.observe("coauthors", start, len(coauthors), err) }()

	author := rdf.IRI(authorIRI)
	if !s.graph.Contains(rdf.T(author, rdf.Type, rdf.Person)) {
		return nil, domain.NewNotFoundError("author", authorIRI)
	}

	res, err := s.run(ctx, coauthorsStmt.Bind("author", author))
	if err != nil {
		return nil, err
	}
	return collectEntities(res), nil
}

// PapersByYear lists the papers published in year.
func (s *Service) PapersByYear(ctx context.Context, year string) (papers []PaperSummary, err error) {
	start := time.Now()
	defer func() { s.observe("papers_by_year", start, len(papers), err) }()

	if n, convErr := strconv.Atoi(year); convErr != nil || len(year) != 4 || n < 1000 {
		return nil, domain.NewValidationError("year", "must be a four-digit year")
	}

	res, err := s.run(ctx, papersByYearStmt.Bind("year", rdf.TypedLiteral(year, rdf.XSDGYear)))
	if err != nil {
		return nil, err
	}
	return collectPapers(res, 0), nil
}
