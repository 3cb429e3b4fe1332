package query

import (
	"context"
	"fmt"
	"time"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/sparql"
)

// SearchResult is one paper matched by keyword search.
type SearchResult struct {
	URI    string `json:"uri"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   string `json:"year"`
}

// ResourceMatch is one entity matched by SearchResources.
type ResourceMatch struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
	Kind string `json:"type"`
}

// Search returns papers whose title or author name contains keyword,
// ignoring case. Each paper appears once, credited to its first matching
// author or, when only the title matched, its first author.
func (s *Service) Search(ctx context.Context, keyword string) (results []SearchResult, err error) {
	start := time.Now()
	defer func() { s.observe("search", start, len(results), err) }()

	term := domain.NormalizeSearchTerm(keyword)
	if term == "" {
		return nil, domain.NewValidationError("q", "search keyword is required")
	}

	res, err := s.run(ctx, searchPapersStmt.BindString("term", term))
	if err != nil {
		return nil, err
	}

	papers := collectPapers(res, s.opts.SearchLimit)
	results = make([]SearchResult, len(papers))
	for i, p := range papers {
		results[i] = SearchResult(p)
	}
	return results, nil
}

// SearchResources matches keyword against the names of organizations,
// authors, papers, journals and keywords.
func (s *Service) SearchResources(ctx context.Context, keyword string) (matches []ResourceMatch, err error) {
	start := time.Now()
	defer func() { s.observe("search_resources", start, len(matches), err) }()

	term := domain.NormalizeSearchTerm(keyword)
	if term == "" {
		return nil, domain.NewValidationError("q", "search keyword is required")
	}

	res, err := s.run(ctx, searchResourcesStmt.BindString("term", term))
	if err != nil {
		return nil, err
	}

	seen := make(map[rdf.Term]struct{})
	for _, b := range res.Bindings {
		r := b["resource"]
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		matches = append(matches, ResourceMatch{URI: r.Value, Name: b["name"].Value, Kind: b["kind"].Value})
		if len(matches) == s.opts.SearchLimit {
			break
		}
	}
	return matches, nil
}

// run executes a prepared statement under the service timeout.
func (s *Service) run(ctx context.Context, p *sparql.Prepared) (*sparql.Results, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	res, err := p.Exec(ctx, s.graph)
	if err != nil {
		return nil, s.wrapExecError(err)
	}
	return res, nil
}

func (s *Service) wrapExecError(err error) error {
	if isDeadline(err) {
		return fmt.Errorf("%w: exceeded %s", domain.ErrQueryTimeout, s.opts.Timeout)
	}
	return err
}

// collectPapers keeps the first solution per paper, in solution order.
// limit <= 0 keeps every paper.
func collectPapers(res *sparql.Results, limit int) []PaperSummary {
	var out []PaperSummary
	seen := make(map[rdf.Term]struct{})
	for _, b := range res.Bindings {
		paper := b["paper"]
		if _, ok := seen[paper]; ok {
			continue
		}
		seen[paper] = struct{}{}
		out = append(out, PaperSummary{
			URI:    paper.Value,
			Title:  b["title"].Value,
			Author: orUnknown(b, "authorName"),
			Year:   orUnknown(b, "year"),
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func orUnknown(b sparql.Binding, name string) string {
	if t, ok := b[name]; ok && t.Value != "" {
		return t.Value
	}
	return Unknown
}
