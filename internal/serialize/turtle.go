package serialize

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/helixir/research-graph/internal/rdf"
	"github.com/helixir/research-graph/internal/store"
)

// safeLocal matches local names that can be written as prefix:local without
// escaping. Slashes and other reserved characters force a full <IRI>.
var safeLocal = regexp.MustCompile(`^[A-Za-z0-9_]([A-Za-z0-9_.-]*[A-Za-z0-9_-])?$`)

// WriteTurtle writes g as Turtle. Subjects appear in order of first
// appearance, predicates are grouped per subject and objects per predicate.
func WriteTurtle(w io.Writer, g *store.Graph) error {
	bw := bufio.NewWriter(w)
	prefixes := rdf.Prefixes()

	for _, p := range prefixes {
		bw.WriteString("@prefix ")
		bw.WriteString(p.Name)
		bw.WriteString(": <")
		bw.WriteString(string(p.Namespace))
		bw.WriteString("> .\n")
	}

	for _, s := range subjectOrder(g) {
		bw.WriteString("\n")
		bw.WriteString(turtleTerm(s, prefixes))

		groups := predicateGroups(g, s)
		for i, grp := range groups {
			if i == 0 {
				bw.WriteString(" ")
			} else {
				bw.WriteString(" ;\n    ")
			}
			if grp.predicate == rdf.Type {
				bw.WriteString("a")
			} else {
				bw.WriteString(turtleTerm(grp.predicate, prefixes))
			}
			for j, o := range grp.objects {
				if j == 0 {
					bw.WriteString(" ")
				} else {
					bw.WriteString(",\n        ")
				}
				bw.WriteString(turtleTerm(o, prefixes))
			}
		}
		bw.WriteString(" .\n")
	}

	return bw.Flush()
}

type predicateGroup struct {
	predicate rdf.Term
	objects   []rdf.Term
}

func subjectOrder(g *store.Graph) []rdf.Term {
	var out []rdf.Term
	seen := make(map[rdf.Term]struct{})
	for _, t := range g.Triples() {
		if _, ok := seen[t.S]; ok {
			continue
		}
		seen[t.S] = struct{}{}
		out = append(out, t.S)
	}
	return out
}

func predicateGroups(g *store.Graph, s rdf.Term) []predicateGroup {
	var groups []predicateGroup
	index := make(map[rdf.Term]int)
	g.MatchFunc(&s, nil, nil, func(t rdf.Triple) bool {
		i, ok := index[t.P]
		if !ok {
			i = len(groups)
			index[t.P] = i
			groups = append(groups, predicateGroup{predicate: t.P})
		}
		groups[i].objects = append(groups[i].objects, t.O)
		return true
	})
	return groups
}

func turtleTerm(t rdf.Term, prefixes []rdf.Prefix) string {
	switch t.Kind {
	case rdf.KindIRI:
		return turtleIRI(t.Value, prefixes)
	case rdf.KindBlank:
		return "_:" + t.Value
	case rdf.KindLiteral:
		var b strings.Builder
		b.WriteByte('"')
		b.WriteString(rdf.EscapeString(t.Value))
		b.WriteByte('"')
		if t.Lang != "" {
			b.WriteByte('@')
			b.WriteString(t.Lang)
		} else if t.Datatype != "" {
			b.WriteString("^^")
			b.WriteString(turtleIRI(t.Datatype, prefixes))
		}
		return b.String()
	default:
		return ""
	}
}

func turtleIRI(iri string, prefixes []rdf.Prefix) string {
	best := -1
	for i, p := range prefixes {
		if strings.HasPrefix(iri, string(p.Namespace)) && (best == -1 || len(p.Namespace) > len(prefixes[best].Namespace)) {
			best = i
		}
	}
	if best >= 0 {
		local := strings.TrimPrefix(iri, string(prefixes[best].Namespace))
		if safeLocal.MatchString(local) {
			return prefixes[best].Name + ":" + local
		}
	}
	return "<" + rdf.EscapeIRI(iri) + ">"
}
