package rdf

import (
	"sort"
	"strings"
)

// Namespace is an IRI prefix.
type Namespace string

// Term returns the IRI formed by appending local to the namespace.
func (ns Namespace) Term(local string) Term {
	return IRI(string(ns) + local)
}

// IRI returns the expanded IRI string for local.
func (ns Namespace) IRI(local string) string {
	return string(ns) + local
}

// Namespaces used by the research graph.
const (
	BUPT     Namespace = "http://bupt.edu.cn/research/"
	BUPTOnto Namespace = "http://bupt.edu.cn/ontology/"
	Schema   Namespace = "http://schema.org/"
	DCTerms  Namespace = "http://purl.org/dc/terms/"
	FOAF     Namespace = "http://xmlns.com/foaf/0.1/"
	RDFNS    Namespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS     Namespace = "http://www.w3.org/2000/01/rdf-schema#"
	XSD      Namespace = "http://www.w3.org/2001/XMLSchema#"
)

// Datatype IRIs.
const (
	XSDString     = string(XSD) + "string"
	XSDInteger    = string(XSD) + "integer"
	XSDGYear      = string(XSD) + "gYear"
	XSDAnyURI     = string(XSD) + "anyURI"
	XSDBoolean    = string(XSD) + "boolean"
	XSDDecimal    = string(XSD) + "decimal"
	XSDDouble     = string(XSD) + "double"
	RDFLangString = string(RDFNS) + "langString"
)

// Prefix binds a short name to a namespace.
type Prefix struct {
	Name      string
	Namespace Namespace
}

// Prefixes returns the fixed prefix table sorted by name.
func Prefixes() []Prefix {
	out := []Prefix{
		{Name: "bupt", Namespace: BUPT},
		{Name: "bupt-onto", Namespace: BUPTOnto},
		{Name: "dcterms", Namespace: DCTerms},
		{Name: "foaf", Namespace: FOAF},
		{Name: "rdf", Namespace: RDFNS},
		{Name: "rdfs", Namespace: RDFS},
		{Name: "schema", Namespace: Schema},
		{Name: "xsd", Namespace: XSD},
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PrefixMap returns the prefix table as a name to namespace map.
func PrefixMap() map[string]Namespace {
	m := make(map[string]Namespace, 8)
	for _, p := range Prefixes() {
		m[p.Name] = p.Namespace
	}
	return m
}

// Compact renders iri as prefix:local using the longest matching namespace.
// IRIs outside every known namespace are returned unchanged.
func Compact(iri string) string {
	best := Prefix{}
	for _, p := range Prefixes() {
		if strings.HasPrefix(iri, string(p.Namespace)) && len(p.Namespace) > len(best.Namespace) {
			best = p
		}
	}
	if best.Name == "" {
		return iri
	}
	return best.Name + ":" + strings.TrimPrefix(iri, string(best.Namespace))
}

// Expand reverses Compact. The second result is false when the prefix is unknown.
func Expand(curie string) (string, bool) {
	name, local, ok := strings.Cut(curie, ":")
	if !ok {
		return "", false
	}
	ns, ok := PrefixMap()[name]
	if !ok {
		return "", false
	}
	return string(ns) + local, true
}

// Classes.
var (
	ScholarlyArticle  = Schema.Term("ScholarlyArticle")
	Person            = FOAF.Term("Person")
	Organization      = Schema.Term("Organization")
	Periodical        = Schema.Term("Periodical")
	PublicationVolume = Schema.Term("PublicationVolume")
	DefinedTerm       = Schema.Term("DefinedTerm")
)

// Predicates.
var (
	Type = RDFNS.Term("type")

	DCType     = DCTerms.Term("type")
	DCTitle    = DCTerms.Term("title")
	DCCreator  = DCTerms.Term("creator")
	DCSource   = DCTerms.Term("source")
	DCAbstract = DCTerms.Term("abstract")
	DCDate     = DCTerms.Term("date")

	SourceDatabase = BUPTOnto.Term("sourceDatabase")

	SchemaName          = Schema.Term("name")
	SchemaAuthor        = Schema.Term("author")
	SchemaAffiliation   = Schema.Term("affiliation")
	SchemaMember        = Schema.Term("member")
	SchemaIsPartOf      = Schema.Term("isPartOf")
	SchemaHasPart       = Schema.Term("hasPart")
	SchemaKeywords      = Schema.Term("keywords")
	SchemaAbout         = Schema.Term("about")
	SchemaIsRelatedTo   = Schema.Term("isRelatedTo")
	SchemaTermCode      = Schema.Term("termCode")
	SchemaDescription   = Schema.Term("description")
	SchemaDatePublished = Schema.Term("datePublished")
	SchemaURL           = Schema.Term("url")

	FOAFName = FOAF.Term("name")
	FOAFMade = FOAF.Term("made")

	RDFSLabel = RDFS.Term("label")
)
