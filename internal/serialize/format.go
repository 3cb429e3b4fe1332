// Package serialize renders graphs as Turtle, N-Triples or JSON-LD and loads
// Turtle and N-Triples documents back into a graph.
//
// Output is deterministic: the same graph always produces the same bytes.
package serialize

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/helixir/research-graph/internal/store"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// ParseFormat resolves a format name or common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	case "jsonld", "json-ld", "json":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// FormatForPath infers the format from a file extension, defaulting to Turtle.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt":
		return FormatNTriples
	case ".jsonld", ".json":
		return FormatJSONLD
	default:
		return FormatTurtle
	}
}

// Extension returns the conventional file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatNTriples:
		return ".nt"
	case FormatJSONLD:
		return ".jsonld"
	default:
		return ".ttl"
	}
}

// MediaType returns the HTTP content type for f.
func (f Format) MediaType() string {
	switch f {
	case FormatNTriples:
		return "application/n-triples; charset=utf-8"
	case FormatJSONLD:
		return "application/ld+json"
	default:
		return "text/turtle; charset=utf-8"
	}
}

// Write serializes g to w in the given format.
func Write(w io.Writer, g *store.Graph, f Format) error {
	switch f {
	case FormatTurtle:
		return WriteTurtle(w, g)
	case FormatNTriples:
		return WriteNTriples(w, g)
	case FormatJSONLD:
		return WriteJSONLD(w, g)
	default:
		return fmt.Errorf("unsupported format: %s", f)
	}
}

// Marshal serializes g into a byte slice.
func Marshal(g *store.Graph, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, g, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
