package patternindex

import "github.com/blevesearch/bleve/v2/search"

// extractMatchedTerms collects the distinct terms bleve matched in the
// "content" field, mirroring the teacher's extractMatchedTerms.
func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field != "content" {
			continue
		}
		for term := range locations {
			terms[term] = struct{}{}
		}
	}
	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	return result
}
