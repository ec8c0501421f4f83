package patternindex

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// episodeTokenizerName names the custom whitespace/stop-word
	// tokenizer registered with bleve for episode text.
	episodeTokenizerName = "episode_tokenizer"

	// episodeStopFilterName names the custom stop-word filter.
	episodeStopFilterName = "episode_stop"

	// episodeAnalyzerName names the composed analyzer.
	episodeAnalyzerName = "episode_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(episodeTokenizerName, episodeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(episodeStopFilterName, episodeStopFilterConstructor)
}

// createIndexMapping builds the bleve mapping using the episode analyzer
// as default, mirroring the teacher's createIndexMapping for BM25.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	if err := indexMapping.AddCustomAnalyzer(episodeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": episodeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			episodeStopFilterName,
		},
	}); err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = episodeAnalyzerName
	return indexMapping, nil
}

func episodeTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &episodeTokenizer{}, nil
}

// episodeTokenizer implements analysis.Tokenizer over spec.md §4.6's
// whitespace/length-filtered pipeline (stop words are dropped in a
// separate token filter so bleve's own analyzer chain stays inspectable).
type episodeTokenizer struct{}

func (t *episodeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	fields := strings.Fields(text)

	result := make(analysis.TokenStream, 0, len(fields))
	pos := 1
	offset := 0
	for _, field := range fields {
		trimmed := strings.Trim(field, ".,;:!?()[]{}\"'")
		start := strings.Index(text[offset:], field)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(field)
		offset = end

		if len(trimmed) <= 2 {
			continue
		}
		result = append(result, &analysis.Token{
			Term:     []byte(trimmed),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
	}
	return result
}

func episodeStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &episodeStopFilter{stopWords: BuildStopWordMap(DefaultStopWords)}, nil
}

// episodeStopFilter implements analysis.TokenFilter dropping the fixed
// stop-word set of spec.md §4.6.
type episodeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *episodeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
