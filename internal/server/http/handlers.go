package httpserver

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/negotiate"
	"github.com/helixir/research-graph/internal/query"
	"github.com/helixir/research-graph/internal/sparql"
)

const (
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

	sparqlQueryMediaType = "application/sparql-query"
)

// parsePage reads the 1-based page parameter. A missing parameter is page 1.
func parsePage(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError("page", "page must be a positive integer")
	}
	return page, nil
}

// home handles GET /: store statistics as HTML, or the whole graph.
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	repr := negotiate.FromRequest(r)
	if repr.IsRDF() {
		s.writeGraph(w, r, repr, s.queries.Graph())
		return
	}
	s.render(w, http.StatusOK, "home", homePage{Title: "Home", Stats: s.queries.Statistics()})
}

// resource handles GET /research/{type}/{id}.
func (s *Server) resource(w http.ResponseWriter, r *http.Request) {
	repr := negotiate.FromRequest(r)
	kind, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")

	iri, err := query.ResourceIRI(kind, id)
	if err != nil {
		s.fail(w, r, repr, domain.NewNotFoundError("resource", kind+"/"+id))
		return
	}
	res, err := s.queries.Resource(r.Context(), iri)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}

	if repr.IsRDF() {
		s.writeGraph(w, r, repr, res.Graph)
		return
	}
	s.render(w, http.StatusOK, "resource", resourcePage{Title: fmt.Sprintf("%s: %s", kind, id), Resource: res})
}

// papers handles GET /papers, optionally narrowed by ?year=YYYY.
func (s *Server) papers(w http.ResponseWriter, r *http.Request) {
	repr := negotiate.FromRequest(r)
	pageNum, err := parsePage(r)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}

	heading := "Papers"
	year := strings.TrimSpace(r.URL.Query().Get("year"))
	var page *query.Page[query.PaperSummary]
	if year != "" {
		var list []query.PaperSummary
		list, err = s.queries.PapersByYear(r.Context(), year)
		if err == nil {
			page, err = query.Paginate(list, pageNum, s.queries.Options().PageSize)
		}
		heading = "Papers published in " + year
	} else {
		page, err = s.queries.Papers(r.Context(), pageNum)
	}
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}

	if repr == negotiate.JSONLD {
		writeJSON(w, http.StatusOK, page)
		return
	}
	s.render(w, http.StatusOK, "papers", papersPage{Title: heading, Heading: heading, Page: page, BasePath: "/papers", Year: year})
}

// authors handles GET /authors.
func (s *Server) authors(w http.ResponseWriter, r *http.Request) {
	s.entityListing(w, r, "Authors", "authors", s.queries.Authors)
}

// organizations handles GET /organizations.
func (s *Server) organizations(w http.ResponseWriter, r *http.Request) {
	s.entityListing(w, r, "Organizations", "organizations", s.queries.Organizations)
}

func (s *Server) entityListing(
	w http.ResponseWriter,
	r *http.Request,
	heading, kind string,
	list func(ctx context.Context, page int) (*query.Page[query.EntitySummary], error),
) {
	repr := negotiate.FromRequest(r)
	pageNum, err := parsePage(r)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}
	page, err := list(r.Context(), pageNum)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}
	if repr == negotiate.JSONLD {
		writeJSON(w, http.StatusOK, page)
		return
	}
	s.render(w, http.StatusOK, "entities", entitiesPage{
		Title: heading, Heading: heading, Kind: kind, Page: page, BasePath: r.URL.Path,
	})
}

// authorPapers handles GET /authors/{id}/papers.
func (s *Server) authorPapers(w http.ResponseWriter, r *http.Request) {
	repr := negotiate.FromRequest(r)
	author, ok := s.lookupEntity(w, r, repr, domain.KindAuthor)
	if !ok {
		return
	}
	pageNum, err := parsePage(r)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}
	list, err := s.queries.PapersByAuthor(r.Context(), author.IRI)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}
	page, err := query.Paginate(list, pageNum, s.queries.Options().PageSize)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}
	if repr == negotiate.JSONLD {
		writeJSON(w, http.StatusOK, page)
		return
	}
	heading := "Papers by " + displayName(author)
	s.render(w, http.StatusOK, "papers", papersPage{Title: heading, Heading: heading, Page: page, BasePath: r.URL.Path})
}

// coauthors handles GET /authors/{id}/coauthors.
func (s *Server) coauthors(w http.ResponseWriter, r *http.Request) {
	repr := negotiate.FromRequest(r)
	author, ok := s.lookupEntity(w, r, repr, domain.KindAuthor)
	if !ok {
		return
	}
	list, err := s.queries.Coauthors(r.Context(), author.IRI)
	s.relatedEntities(w, r, repr, "Coauthors of "+displayName(author), "coauthors", list, err)
}

// organizationMembers handles GET /organizations/{id}/members.
func (s *Server) organizationMembers(w http.ResponseWriter, r *http.Request) {
	repr := negotiate.FromRequest(r)
	org, ok := s.lookupEntity(w, r, repr, domain.KindOrganization)
	if !ok {
		return
	}
	list, err := s.queries.OrganizationMembers(r.Context(), org.IRI)
	s.relatedEntities(w, r, repr, "Members of "+displayName(org), "members", list, err)
}

func (s *Server) relatedEntities(
	w http.ResponseWriter,
	r *http.Request,
	repr negotiate.Representation,
	heading, kind string,
	list []query.EntitySummary,
	err error,
) {
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}
	pageNum, err := parsePage(r)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}
	page, err := query.Paginate(list, pageNum, s.queries.Options().PageSize)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}
	if repr == negotiate.JSONLD {
		writeJSON(w, http.StatusOK, page)
		return
	}
	s.render(w, http.StatusOK, "entities", entitiesPage{
		Title: heading, Heading: heading, Kind: kind, Page: page, BasePath: r.URL.Path,
	})
}

// lookupEntity resolves the {id} path parameter to a resource of kind,
// writing a 404 when it does not exist.
func (s *Server) lookupEntity(w http.ResponseWriter, r *http.Request, repr negotiate.Representation, kind domain.EntityKind) (*query.Resource, bool) {
	id := chi.URLParam(r, "id")
	iri, err := query.ResourceIRI(string(kind), id)
	if err != nil {
		s.fail(w, r, repr, domain.NewNotFoundError(string(kind), id))
		return nil, false
	}
	res, err := s.queries.Resource(r.Context(), iri)
	if err != nil {
		s.fail(w, r, repr, err)
		return nil, false
	}
	return res, true
}

func displayName(r *query.Resource) string {
	if r.Name != "" {
		return r.Name
	}
	return r.IRI
}

// search handles GET /search?q=keyword.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	repr := negotiate.FromRequest(r)
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))

	if keyword == "" {
		if repr == negotiate.JSONLD {
			writeJSON(w, http.StatusOK, []query.SearchResult{})
			return
		}
		s.render(w, http.StatusOK, "search", searchPage{Title: "Search"})
		return
	}

	results, err := s.queries.Search(r.Context(), keyword)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}
	if results == nil {
		results = []query.SearchResult{}
	}
	if repr == negotiate.JSONLD {
		writeJSON(w, http.StatusOK, results)
		return
	}
	s.render(w, http.StatusOK, "search", searchPage{
		Title:   "Search: " + keyword,
		Query:   keyword,
		Results: results,
		Total:   len(results),
	})
}

// sparql handles GET and POST /sparql. Without a query it serves the
// query form.
func (s *Server) sparql(w http.ResponseWriter, r *http.Request) {
	repr := negotiate.FromRequest(r)
	wantsResultsJSON := repr == negotiate.JSONLD || strings.Contains(r.Header.Get("Accept"), sparql.ResultsMediaType)

	src, err := queryText(w, r)
	if err != nil {
		s.fail(w, r, repr, err)
		return
	}
	if strings.TrimSpace(src) == "" {
		if wantsResultsJSON {
			writeDomainError(w, domain.NewValidationError("query", "query is required"))
			return
		}
		s.render(w, http.StatusOK, "sparql", sparqlPage{Title: "SPARQL"})
		return
	}

	res, err := s.queries.Execute(r.Context(), src)
	if err != nil {
		if wantsResultsJSON {
			writeDomainError(w, err)
			return
		}
		s.fail(w, r, negotiate.HTML, err)
		return
	}

	if wantsResultsJSON {
		w.Header().Set("Content-Type", sparql.ResultsMediaType)
		w.WriteHeader(http.StatusOK)
		if err := res.Raw.WriteJSON(w); err != nil {
			s.logger.Warn().Err(err).Msg("failed to write query results")
		}
		return
	}
	s.render(w, http.StatusOK, "sparql", sparqlPage{Title: "SPARQL Results", Query: src, Result: res})
}

// queryText extracts the query from the URL, a form body, or a raw
// application/sparql-query body.
func queryText(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Method != http.MethodPost {
		return r.URL.Query().Get("query"), nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == sparqlQueryMediaType {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return "", domain.NewValidationError("query", "failed to read request body")
		}
		return string(body), nil
	}
	if err := r.ParseForm(); err != nil {
		return "", domain.NewValidationError("query", "invalid form body")
	}
	return r.FormValue("query"), nil
}

// apiSearch handles GET /api/search?q=keyword over every named resource.
func (s *Server) apiSearch(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	matches, err := s.queries.SearchResources(r.Context(), keyword)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if matches == nil {
		matches = []query.ResourceMatch{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: keyword, Count: len(matches), Results: matches})
}

// apiResource handles GET /api/resource?uri=...
func (s *Server) apiResource(w http.ResponseWriter, r *http.Request) {
	iri := strings.TrimSpace(r.URL.Query().Get("uri"))
	if strings.Contains(iri, "%") {
		if decoded, err := url.QueryUnescape(iri); err == nil {
			iri = decoded
		}
	}
	if iri == "" {
		writeDomainError(w, domain.NewValidationError("uri", "resource uri is required"))
		return
	}
	res, err := s.queries.Resource(r.Context(), iri)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resourceResponse{Resource: res, PropertyCount: res.PropertyCount()})
}

// apiStats handles GET /api/stats.
func (s *Server) apiStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.queries.Statistics())
}

// apiSPARQL handles POST /api/sparql and always answers in JSON.
func (s *Server) apiSPARQL(w http.ResponseWriter, r *http.Request) {
	src, err := queryText(w, r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, err := s.queries.Execute(r.Context(), src)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSPARQLResponse(src, res))
}
