// Package rdf defines the RDF term and triple model shared by the mapper,
// graph store, serializers and the query engine.
package rdf

import (
	"strings"
)

// TermKind distinguishes the three kinds of RDF term.
type TermKind uint8

// Term kinds. The zero value is not a valid term.
const (
	KindIRI TermKind = iota + 1
	KindLiteral
	KindBlank
)

// String returns a lowercase name for the kind.
func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindLiteral:
		return "literal"
	case KindBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Term is an IRI, literal or blank node. Terms are comparable values and
// may be used as map keys.
type Term struct {
	Kind TermKind
	// Value is the IRI, the lexical form of a literal, or the blank node label.
	Value string
	// Lang is the language tag of a literal. Empty when absent.
	Lang string
	// Datatype is the datatype IRI of a typed literal. Empty for plain and
	// language-tagged literals.
	Datatype string
}

// IRI returns an IRI term.
func IRI(v string) Term {
	return Term{Kind: KindIRI, Value: v}
}

// Literal returns a plain literal.
func Literal(v string) Term {
	return Term{Kind: KindLiteral, Value: v}
}

// LangLiteral returns a language-tagged literal. An empty lang yields a plain literal.
func LangLiteral(v, lang string) Term {
	return Term{Kind: KindLiteral, Value: v, Lang: strings.ToLower(lang)}
}

// TypedLiteral returns a literal with the given datatype IRI.
func TypedLiteral(v, datatype string) Term {
	if datatype == XSDString {
		return Literal(v)
	}
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

// Blank returns a blank node with the given label.
func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: label}
}

// IsZero reports whether t is the zero Term.
func (t Term) IsZero() bool {
	return t.Kind == 0
}

// IsIRI reports whether t is an IRI.
func (t Term) IsIRI() bool { return t.Kind == KindIRI }

// IsLiteral reports whether t is a literal.
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// IsBlank reports whether t is a blank node.
func (t Term) IsBlank() bool { return t.Kind == KindBlank }

// EffectiveDatatype returns the datatype IRI of a literal following RDF 1.1:
// language-tagged literals are rdf:langString and plain literals are xsd:string.
func (t Term) EffectiveDatatype() string {
	switch {
	case t.Kind != KindLiteral:
		return ""
	case t.Lang != "":
		return RDFLangString
	case t.Datatype == "":
		return XSDString
	default:
		return t.Datatype
	}
}

// String renders the term in N-Triples syntax.
func (t Term) String() string {
	var b strings.Builder
	t.writeNT(&b)
	return b.String()
}

func (t Term) writeNT(b *strings.Builder) {
	switch t.Kind {
	case KindIRI:
		b.WriteByte('<')
		b.WriteString(EscapeIRI(t.Value))
		b.WriteByte('>')
	case KindBlank:
		b.WriteString("_:")
		b.WriteString(t.Value)
	case KindLiteral:
		b.WriteByte('"')
		b.WriteString(EscapeString(t.Value))
		b.WriteByte('"')
		if t.Lang != "" {
			b.WriteByte('@')
			b.WriteString(t.Lang)
		} else if t.Datatype != "" {
			b.WriteString("^^<")
			b.WriteString(EscapeIRI(t.Datatype))
			b.WriteByte('>')
		}
	}
}

// Triple is a single subject-predicate-object statement.
type Triple struct {
	S Term
	P Term
	O Term
}

// T builds a triple.
func T(s, p, o Term) Triple {
	return Triple{S: s, P: p, O: o}
}

// String renders the triple as one N-Triples statement without the trailing newline.
func (t Triple) String() string {
	var b strings.Builder
	t.S.writeNT(&b)
	b.WriteByte(' ')
	t.P.writeNT(&b)
	b.WriteByte(' ')
	t.O.writeNT(&b)
	b.WriteString(" .")
	return b.String()
}

// EscapeString escapes a literal lexical form for N-Triples and Turtle.
func EscapeString(s string) string {
	if !strings.ContainsAny(s, "\"\\\n\r\t\b\f") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EscapeIRI percent-escapes the characters N-Triples forbids inside <...>.
func EscapeIRI(s string) string {
	if !strings.ContainsAny(s, "<>\"{}|^`\\ ") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\', ' ':
			b.WriteString("%")
			b.WriteString(strings.ToUpper(hexByte(c)))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func hexByte(c byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[c>>4], digits[c&0x0f]})
}
