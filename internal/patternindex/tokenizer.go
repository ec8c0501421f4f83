package patternindex

import "strings"

// DefaultStopWords is the fixed stop-word set dropped from episode text,
// per spec.md §4.6's keyword pipeline.
var DefaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "is", "are", "was", "were", "be", "been", "being",
	"this", "that", "these", "those", "it", "as", "by", "from", "has",
	"have", "had", "not", "no", "into", "than", "then", "so", "its",
}

// Tokenize implements spec.md §4.6's keyword pipeline: split on
// whitespace, lowercase, drop stop words, drop tokens of length <= 2.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	stop := BuildStopWordMap(DefaultStopWords)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]{}\"'")
		if len(f) <= 2 {
			continue
		}
		if _, isStop := stop[f]; isStop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// BuildStopWordMap converts a slice of stop words to a set for lookup,
// mirroring the teacher's store.BuildStopWordMap.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}
