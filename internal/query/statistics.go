package query

import "github.com/helixir/research-graph/internal/rdf"

// Statistics counts typed entities and triples.
type Statistics struct {
	Papers        int `json:"papers"`
	Authors       int `json:"authors"`
	Organizations int `json:"organizations"`
	Journals      int `json:"journals"`
	Keywords      int `json:"keywords"`
	Triples       int `json:"total_triples"`
}

// Statistics returns entity counts per type and the total triple count.
func (s *Service) Statistics() Statistics {
	return s.stats()
}

func (s *Service) computeStatistics() Statistics {
	return Statistics{
		Papers:        s.graph.CountOfType(rdf.ScholarlyArticle),
		Authors:       s.graph.CountOfType(rdf.Person),
		Organizations: s.graph.CountOfType(rdf.Organization),
		Journals:      s.graph.CountOfType(rdf.Periodical),
		Keywords:      s.graph.CountOfType(rdf.DefinedTerm),
		Triples:       s.graph.Len(),
	}
}
