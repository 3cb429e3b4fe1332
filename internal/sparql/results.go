package sparql

import (
	"io"

	"github.com/segmentio/encoding/json"

	"github.com/helixir/research-graph/internal/rdf"
)

// ResultsMediaType is the media type of the JSON results format.
const ResultsMediaType = "application/sparql-results+json"

type resultsHead struct {
	Vars []string `json:"vars,omitempty"`
}

type resultsBody struct {
	Bindings []map[string]resultValue `json:"bindings"`
}

type resultValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

type resultsDocument struct {
	Head    resultsHead  `json:"head"`
	Results *resultsBody `json:"results,omitempty"`
	Boolean *bool        `json:"boolean,omitempty"`
}

func encodeValue(t rdf.Term) resultValue {
	switch t.Kind {
	case rdf.KindIRI:
		return resultValue{Type: "uri", Value: t.Value}
	case rdf.KindBlank:
		return resultValue{Type: "bnode", Value: t.Value}
	default:
		return resultValue{Type: "literal", Value: t.Value, Lang: t.Lang, Datatype: t.Datatype}
	}
}

// WriteJSON writes r in the SPARQL 1.1 query results JSON format.
func (r *Results) WriteJSON(w io.Writer) error {
	doc := resultsDocument{}
	if r.Form == FormAsk {
		b := r.Boolean
		doc.Boolean = &b
	} else {
		doc.Head.Vars = r.Vars
		body := &resultsBody{Bindings: make([]map[string]resultValue, len(r.Bindings))}
		for i, b := range r.Bindings {
			row := make(map[string]resultValue, len(b))
			for k, v := range b {
				row[k] = encodeValue(v)
			}
			body.Bindings[i] = row
		}
		doc.Results = body
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// Strings returns each row as the lexical values of the projected
// variables. Unbound positions are empty strings.
func (r *Results) Strings() [][]string {
	rows := make([][]string, len(r.Bindings))
	for i, b := range r.Bindings {
		row := make([]string, len(r.Vars))
		for j, v := range r.Vars {
			if t, ok := b[v]; ok {
				row[j] = t.Value
			}
		}
		rows[i] = row
	}
	return rows
}
