package query

import (
	"context"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/sparql"
)

// PaperSummary is one row of the paper listing.
type PaperSummary struct {
	URI    string `json:"uri"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   string `json:"year"`
}

// EntitySummary is one row of the author or organization listing.
type EntitySummary struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// Page is one page of a listing. Items keep graph insertion order.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// HasPrev reports whether an earlier page exists.
func (p *Page[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a later page exists.
func (p *Page[T]) HasNext() bool { return p.Page < p.TotalPages }

// Paginate slices items for the one-based page. A page past the end is
// empty, not an error.
func Paginate[T any](items []T, page, size int) (*Page[T], error) {
	if page < 1 {
		return nil, domain.NewValidationError("page", "must be a positive integer")
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	total := len(items)
	p := &Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}

	// Compare before multiplying so a huge page number cannot overflow.
	if page-1 >= p.TotalPages {
		return p, nil
	}
	offset := (page - 1) * size
	end := min(offset+size, total)
	p.Items = items[offset:end:end]
	return p, nil
}

// Papers returns one page of papers with their first author and year.
func (s *Service) Papers(ctx context.Context, page int) (*Page[PaperSummary], error) {
	return pageOf(ctx, s.papers, page, s.opts.PageSize)
}

// Authors returns one page of authors.
func (s *Service) Authors(ctx context.Context, page int) (*Page[EntitySummary], error) {
	return pageOf(ctx, s.authors, page, s.opts.PageSize)
}

// Organizations returns one page of organizations.
func (s *Service) Organizations(ctx context.Context, page int) (*Page[EntitySummary], error) {
	return pageOf(ctx, s.organizations, page, s.opts.PageSize)
}

func pageOf[T any](ctx context.Context, all func() ([]T, error), page, size int) (*Page[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, domain.NewValidationError("page", "must be a positive integer")
	}
	items, err := all()
	if err != nil {
		return nil, err
	}
	return Paginate(items, page, size)
}

func (s *Service) listPapers(ctx context.Context) ([]PaperSummary, error) {
	res, err := listPapersStmt.Exec(ctx, s.graph)
	if err != nil {
		return nil, err
	}
	return collectPapers(res, 0), nil
}

func (s *Service) listAuthors(ctx context.Context) ([]EntitySummary, error) {
	res, err := listAuthorsStmt.Exec(ctx, s.graph)
	if err != nil {
		return nil, err
	}
	return collectEntities(res), nil
}

func (s *Service) listOrganizations(ctx context.Context) ([]EntitySummary, error) {
	res, err := listOrganizationsStmt.Exec(ctx, s.graph)
	if err != nil {
		return nil, err
	}
	return collectEntities(res), nil
}

// collectEntities keeps the first ?entity ?name solution per entity.
func collectEntities(res *sparql.Results) []EntitySummary {
	var out []EntitySummary
	seen := make(map[rdf.Term]struct{})
	for _, b := range res.Bindings {
		e := b["entity"]
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, EntitySummary{URI: e.Value, Name: b["name"].Value})
	}
	return out
}
