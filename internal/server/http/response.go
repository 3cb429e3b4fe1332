package httpserver

import (
	"errors"
	"net/http"

	"github.com/segmentio/encoding/json"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/negotiate"
	"github.com/helixir/research-graph/internal/query"
	"github.com/helixir/research-graph/internal/serialize"
	"github.com/helixir/research-graph/internal/store"
)

// searchResponse is the /api/search body.
type searchResponse struct {
	Query   string                `json:"query"`
	Count   int                   `json:"count"`
	Results []query.ResourceMatch `json:"results"`
}

// resourceResponse is the /api/resource body.
type resourceResponse struct {
	*query.Resource
	PropertyCount int `json:"property_count"`
}

// sparqlResponse is the /api/sparql body. Each row maps variable name to
// value; unbound variables are omitted.
type sparqlResponse struct {
	Query     string              `json:"query"`
	Vars      []string            `json:"vars"`
	Results   []map[string]string `json:"results"`
	Count     int                 `json:"count"`
	Boolean   *bool               `json:"boolean,omitempty"`
	Truncated bool                `json:"truncated,omitempty"`
}

func newSPARQLResponse(src string, res *query.Result) sparqlResponse {
	resp := sparqlResponse{Query: src, Vars: res.Vars, Results: make([]map[string]string, 0, len(res.Rows))}
	if res.Ask {
		b := res.Boolean
		resp.Boolean = &b
	}
	for _, row := range res.Rows {
		m := make(map[string]string, len(row))
		for i, v := range row {
			if v != "" && i < len(res.Vars) {
				m[res.Vars[i]] = v
			}
		}
		resp.Results = append(resp.Results, m)
	}
	resp.Count = len(resp.Results)
	resp.Truncated = res.Truncated
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// statusFor maps an error onto an HTTP status and a message safe to show
// to the client. Internal details never leave the process.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return http.StatusBadRequest, ve.Error()
		}
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrQueryTimeout):
		return http.StatusGatewayTimeout, "query timed out"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate limited"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeDomainError maps domain errors to HTTP status codes and writes the
// appropriate JSON error response.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	code, msg := statusFor(err)
	writeError(w, code, msg)
}

// fail writes err in the representation the client negotiated.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, repr negotiate.Representation, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	switch repr {
	case negotiate.HTML:
		s.render(w, code, "error", errorPage{Title: http.StatusText(code), Status: code, Message: msg})
	case negotiate.JSONLD:
		writeError(w, code, msg)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(msg + "\n"))
	}
}

// writeGraph serializes g in the negotiated RDF representation.
func (s *Server) writeGraph(w http.ResponseWriter, r *http.Request, repr negotiate.Representation, g *store.Graph) {
	f, ok := repr.Format()
	if !ok {
		f = serialize.FormatTurtle
	}
	data, err := serialize.Marshal(g, f)
	if err != nil {
		s.fail(w, r, negotiate.NTriples, err)
		return
	}
	w.Header().Set("Content-Type", f.MediaType())
	w.Header().Set("Vary", "Accept")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
