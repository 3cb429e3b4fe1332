package serialize

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	knakk "github.com/knakk/rdf"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

// Read decodes a Turtle or N-Triples document into g and returns the number
// of new triples.
func Read(r io.Reader, f Format, g *store.Graph) (int, error) {
	var kf knakk.Format
	switch f {
	case FormatTurtle:
		kf = knakk.Turtle
	case FormatNTriples:
		kf = knakk.NTriples
	default:
		return 0, fmt.Errorf("cannot read format: %s", f)
	}

	dec := knakk.NewTripleDecoder(r, kf)
	added := 0
	for {
		kt, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return added, nil
		}
		if err != nil {
			return added, fmt.Errorf("decode %s: %w", f, err)
		}
		t, err := fromKnakk(kt)
		if err != nil {
			return added, err
		}
		if g.Add(t) {
			added++
		}
	}
}

// LoadFile reads a serialized graph from path into a new graph. The format
// follows the file extension. Failures wrap domain.ErrLoad.
func LoadFile(path string) (*store.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewLoadError(path, err)
	}
	defer f.Close()

	g := store.New()
	if _, err := Read(f, FormatForPath(path), g); err != nil {
		return nil, domain.NewLoadError(path, err)
	}
	return g, nil
}

func fromKnakk(t knakk.Triple) (rdf.Triple, error) {
	s, err := termFromKnakk(t.Subj)
	if err != nil {
		return rdf.Triple{}, err
	}
	p, err := termFromKnakk(t.Pred)
	if err != nil {
		return rdf.Triple{}, err
	}
	o, err := termFromKnakk(t.Obj)
	if err != nil {
		return rdf.Triple{}, err
	}
	return rdf.T(s, p, o), nil
}

func termFromKnakk(t knakk.Term) (rdf.Term, error) {
	switch t.Type() {
	case knakk.TermIRI:
		return rdf.IRI(t.String()), nil
	case knakk.TermBlank:
		return rdf.Blank(strings.TrimPrefix(t.String(), "_:")), nil
	case knakk.TermLiteral:
		lit, ok := t.(knakk.Literal)
		if !ok {
			return rdf.Term{}, fmt.Errorf("unexpected literal type %T", t)
		}
		if lang := lit.Lang(); lang != "" {
			return rdf.LangLiteral(lit.String(), lang), nil
		}
		return rdf.TypedLiteral(lit.String(), lit.DataType.String()), nil
	default:
		return rdf.Term{}, fmt.Errorf("unknown term type %v", t.Type())
	}
}
