package query

import "github.com/helixir/research-graph/internal/sparql"

// Parameterized statements. User input reaches them only as bound values
// (?term, ?author, ?org, ?year), never as query text.
var (
	searchPapersStmt = sparql.MustPrepare(`
		SELECT ?paper ?title ?authorName ?year WHERE {
			?paper a schema:ScholarlyArticle ;
			       schema:name ?title .
			OPTIONAL {
				?paper schema:author ?author .
				?author foaf:name ?authorName .
			}
			OPTIONAL { ?paper schema:datePublished ?year }
			FILTER(CONTAINS(LCASE(STR(?title)), ?term) ||
			       CONTAINS(LCASE(STR(?authorName)), ?term))
		}`)

	listPapersStmt = sparql.MustPrepare(`
		SELECT ?paper ?title ?authorName ?year WHERE {
			?paper a schema:ScholarlyArticle .
			OPTIONAL { ?paper schema:name ?title }
			OPTIONAL {
				?paper schema:author ?author .
				?author foaf:name ?authorName .
			}
			OPTIONAL { ?paper schema:datePublished ?year }
		}`)

	listAuthorsStmt = sparql.MustPrepare(`
		SELECT ?entity ?name WHERE {
			?entity a foaf:Person .
			OPTIONAL { ?entity foaf:name ?name }
		}`)

	listOrganizationsStmt = sparql.MustPrepare(`
		SELECT ?entity ?name WHERE {
			?entity a schema:Organization .
			OPTIONAL { ?entity schema:name ?name }
		}`)

	papersByAuthorStmt = sparql.MustPrepare(`
		SELECT ?paper ?title ?authorName ?year WHERE {
			?paper dcterms:creator ?author ;
			       schema:name ?title .
			?author schema:name ?authorName .
			OPTIONAL { ?paper schema:datePublished ?year }
		}`)

	organizationMembersStmt = sparql.MustPrepare(`
		SELECT ?entity ?name WHERE {
			?org schema:member ?entity .
			?entity foaf:name ?name .
		}`)

	coauthorsStmt = sparql.MustPrepare(`
		SELECT DISTINCT ?entity ?name WHERE {
			?paper schema:author ?author .
			?paper schema:author ?entity .
			?entity foaf:name ?name .
			FILTER(?entity != ?author)
		}`)

	papersByYearStmt = sparql.MustPrepare(`
		SELECT ?paper ?title ?authorName ?year WHERE {
			?paper schema:datePublished ?year ;
			       schema:name ?title .
			OPTIONAL {
				?paper schema:author ?author .
				?author foaf:name ?authorName .
			}
		}`)

	searchResourcesStmt = sparql.MustPrepare(`
		SELECT ?resource ?name ?kind WHERE {
			{
				?resource a schema:Organization ;
				          schema:name ?name .
				BIND("organization" AS ?kind)
			}
			UNION
			{
				?resource a foaf:Person ;
				          foaf:name ?name .
				BIND("author" AS ?kind)
			}
			UNION
			{
				?resource a schema:ScholarlyArticle ;
				          schema:name ?name .
				BIND("paper" AS ?kind)
			}
			UNION
			{
				?resource a schema:Periodical ;
				          schema:name ?name .
				BIND("journal" AS ?kind)
			}
			UNION
			{
				?resource a schema:DefinedTerm ;
				          schema:name ?name .
				BIND("keyword" AS ?kind)
			}
			FILTER(CONTAINS(LCASE(STR(?name)), ?term))
		}`)
)
