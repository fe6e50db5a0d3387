// Package keyword derives a bounded keyword list from question and answer text.
package keyword

import (
	"strings"

	"github.com/knowledge-engine/quizbank/internal/lexicon"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

// Extractor picks domain terms first and fills up with generic tokens.
type Extractor struct {
	cap        int
	genericMax int
}

// NewExtractor returns the extractor configured by the strategy.
func NewExtractor(s strategy.Strategy) Extractor {
	return Extractor{cap: s.KeywordCap, genericMax: s.GenericMaxLen}
}

// Extract returns between one and cap keywords for text. When nothing qualifies the
// default domain tags are returned.
func (e Extractor) Extract(text string) []string {
	tokens := lexicon.Tokenize(text)
	keywords := make([]string, 0, e.cap)
	seen := make(map[string]bool)
	add := func(w string) {
		if !seen[w] && len(keywords) < e.cap {
			seen[w] = true
			keywords = append(keywords, w)
		}
	}

	for _, tok := range tokens {
		var matched []string
		for _, term := range lexicon.DomainTermsByLength() {
			if !strings.Contains(tok, term) || shadowed(term, matched) {
				continue
			}
			matched = append(matched, term)
			add(term)
		}
	}

	for _, tok := range tokens {
		if len(keywords) >= e.cap {
			break
		}
		n := lexicon.Len(tok)
		if n < 2 || n > e.genericMax || lexicon.IsStopWord(tok) || lexicon.IsNumeric(tok) {
			continue
		}
		add(tok)
	}

	if len(keywords) == 0 {
		return e.defaults()
	}
	return keywords
}

func (e Extractor) defaults() []string {
	n := len(lexicon.DefaultKeywords)
	if n > e.cap {
		n = e.cap
	}
	return append([]string(nil), lexicon.DefaultKeywords[:n]...)
}

func shadowed(term string, longer []string) bool {
	for _, l := range longer {
		if strings.Contains(l, term) {
			return true
		}
	}
	return false
}
