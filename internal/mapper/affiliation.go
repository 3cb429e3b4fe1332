package mapper

// Affiliation pairs an author token with the organization credited to it.
// Organization is empty when the author has no affiliation in this row.
type Affiliation struct {
	Author       string
	Organization string
}

// AffiliationPolicy pairs the author and organization lists of one row.
// It returns one entry per author token, in author order, including empty
// author tokens so callers can keep positions.
type AffiliationPolicy func(authors, organizations []string) []Affiliation

// PositionalAffiliation pairs author i with organization i. Authors beyond
// the end of the organization list, or facing an empty organization token,
// get no affiliation. A row with three authors and two organizations
// silently leaves the third author unaffiliated.
func PositionalAffiliation(authors, organizations []string) []Affiliation {
	out := make([]Affiliation, len(authors))
	for i, a := range authors {
		out[i].Author = a
		if i < len(organizations) {
			out[i].Organization = organizations[i]
		}
	}
	return out
}

// NoAffiliation never credits an organization.
func NoAffiliation(authors, _ []string) []Affiliation {
	out := make([]Affiliation, len(authors))
	for i, a := range authors {
		out[i].Author = a
	}
	return out
}
