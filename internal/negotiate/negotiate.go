// Package negotiate picks the response representation for a request from
// the _format query parameter and the Accept header.
package negotiate

import (
	"net/http"
	"strings"

	"github.com/helixir/research-graph/internal/serialize"
)

// FormatParam is the query parameter that overrides the Accept header.
const FormatParam = "_format"

// Representation is a response encoding.
type Representation int

// Supported representations.
const (
	HTML Representation = iota
	Turtle
	JSONLD
	NTriples
)

// String returns the representation name.
func (r Representation) String() string {
	switch r {
	case Turtle:
		return "turtle"
	case JSONLD:
		return "json-ld"
	case NTriples:
		return "ntriples"
	default:
		return "html"
	}
}

// IsRDF reports whether r is a graph serialization rather than HTML.
func (r Representation) IsRDF() bool { return r != HTML }

// Format returns the graph serialization for r. HTML has none.
func (r Representation) Format() (serialize.Format, bool) {
	switch r {
	case Turtle:
		return serialize.FormatTurtle, true
	case JSONLD:
		return serialize.FormatJSONLD, true
	case NTriples:
		return serialize.FormatNTriples, true
	default:
		return "", false
	}
}

// MediaType returns the Content-Type for r.
func (r Representation) MediaType() string {
	if f, ok := r.Format(); ok {
		return f.MediaType()
	}
	return "text/html; charset=utf-8"
}

// MediaType returns the Content-Type for r.
func MediaType(r Representation) string { return r.MediaType() }

// Negotiate resolves the representation. A recognized formatParam wins;
// otherwise the Accept header is inspected; otherwise HTML.
func Negotiate(formatParam, accept string) Representation {
	if r, ok := fromParam(formatParam); ok {
		return r
	}
	return fromAccept(accept)
}

// FromRequest negotiates using r's _format parameter and Accept header.
func FromRequest(r *http.Request) Representation {
	return Negotiate(r.URL.Query().Get(FormatParam), r.Header.Get("Accept"))
}

func fromParam(p string) (Representation, bool) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "ttl", "turtle":
		return Turtle, true
	case "json", "jsonld", "json-ld":
		return JSONLD, true
	case "nt", "ntriples":
		return NTriples, true
	case "html":
		return HTML, true
	default:
		return HTML, false
	}
}

// fromAccept matches media types by substring in priority order, so
// "application/ld+json;q=0.9" and "text/turtle, */*" both resolve.
func fromAccept(accept string) Representation {
	accept = strings.ToLower(accept)
	switch {
	case strings.Contains(accept, "application/ld+json"), strings.Contains(accept, "application/json"):
		return JSONLD
	case strings.Contains(accept, "text/turtle"):
		return Turtle
	case strings.Contains(accept, "application/n-triples"):
		return NTriples
	default:
		return HTML
	}
}
