package serialize

import (
	"io"

	"github.com/segmentio/encoding/json"

	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

// jsonldDocument is the top-level JSON-LD object. Nodes use expanded IRIs
// as keys; the context documents the prefixes for consumers that compact.
type jsonldDocument struct {
	Context map[string]string `json:"@context"`
	Graph   []jsonldNode      `json:"@graph"`
}

// jsonldNode is one subject. The encoder sorts map keys, so "@id" and
// "@type" come first followed by predicate IRIs in lexical order.
type jsonldNode map[string]any

// jsonldValue is a node reference ({"@id"}) or a value object
// ({"@value"} with an optional "@language" or "@type").
type jsonldValue map[string]string

// BuildJSONLD converts g into a JSON-LD document value.
func BuildJSONLD(g *store.Graph) any {
	ctx := make(map[string]string, 8)
	for _, p := range rdf.Prefixes() {
		ctx[p.Name] = string(p.Namespace)
	}

	subjects := subjectOrder(g)
	nodes := make([]jsonldNode, 0, len(subjects))
	for _, s := range subjects {
		node := jsonldNode{"@id": nodeID(s)}
		for _, grp := range predicateGroups(g, s) {
			if grp.predicate == rdf.Type {
				types := make([]string, 0, len(grp.objects))
				for _, o := range grp.objects {
					if o.Kind == rdf.KindIRI {
						types = append(types, o.Value)
					}
				}
				if len(types) > 0 {
					node["@type"] = types
				}
				continue
			}
			values := make([]jsonldValue, 0, len(grp.objects))
			for _, o := range grp.objects {
				values = append(values, jsonldObject(o))
			}
			node[grp.predicate.Value] = values
		}
		nodes = append(nodes, node)
	}

	return jsonldDocument{Context: ctx, Graph: nodes}
}

// WriteJSONLD writes g as an indented JSON-LD document.
func WriteJSONLD(w io.Writer, g *store.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	enc.SetSortMapKeys(true)
	return enc.Encode(BuildJSONLD(g))
}

func nodeID(t rdf.Term) string {
	if t.Kind == rdf.KindBlank {
		return "_:" + t.Value
	}
	return t.Value
}

func jsonldObject(o rdf.Term) jsonldValue {
	switch o.Kind {
	case rdf.KindIRI, rdf.KindBlank:
		return jsonldValue{"@id": nodeID(o)}
	}
	v := jsonldValue{"@value": o.Value}
	switch {
	case o.Lang != "":
		v["@language"] = o.Lang
	case o.Datatype != "":
		v["@type"] = o.Datatype
	}
	return v
}
