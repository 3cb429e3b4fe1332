package httpserver

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/helixir/research-graph/internal/query"
	"github.com/helixir/research-graph/internal/rdf"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"home", "resource", "papers", "entities", "search", "sparql", "error",
}

type pages struct {
	byName map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"compact":      rdf.Compact,
	"resourcePath": resourcePath,
	"inc":          func(n int) int { return n + 1 },
	"dec":          func(n int) int { return n - 1 },
}

func mustParsePages() *pages {
	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		p.byName[name] = template.Must(template.New(name).Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return p
}

// render executes a page template into a buffer first, so a template error
// never leaves a half-written 200 behind.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	t, ok := s.pages.byName[name]
	if !ok {
		s.logger.Error().Str("template", name).Msg("unknown template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Vary", "Accept")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// resourcePath turns a graph identifier into the local /research path that
// dereferences it. Identifiers outside the research namespace are returned
// unchanged.
func resourcePath(iri string) string {
	local, ok := strings.CutPrefix(iri, string(rdf.BUPT))
	if !ok || local == "" {
		return iri
	}
	if id, ok := strings.CutPrefix(local, "paper_"); ok {
		return "/research/paper/" + id
	}
	if strings.Contains(local, "/") {
		return "/research/" + local
	}
	return iri
}

type homePage struct {
	Title string
	Stats query.Statistics
}

type resourcePage struct {
	Title    string
	Resource *query.Resource
}

type papersPage struct {
	Title    string
	Heading  string
	Page     *query.Page[query.PaperSummary]
	BasePath string
	Year     string
}

type entitiesPage struct {
	Title    string
	Heading  string
	Kind     string
	Page     *query.Page[query.EntitySummary]
	BasePath string
}

type searchPage struct {
	Title   string
	Query   string
	Results []query.SearchResult
	Total   int
}

type sparqlPage struct {
	Title  string
	Query  string
	Result *query.Result
}

type errorPage struct {
	Title   string
	Status  int
	Message string
}
