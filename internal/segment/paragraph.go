// Package segment splits a flat paragraph stream into question segments.
package segment

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// Paragraph is one normalized, non-empty paragraph and its position in the document.
type Paragraph struct {
	Index int
	Text  string
}

// isFullwidthAlnum selects full-width letters, digits and the full-width full stop.
// Full-width CJK punctuation such as "？" and "（" is left untouched.
func isFullwidthAlnum(r rune) bool {
	return (r >= '０' && r <= '９') || (r >= 'Ａ' && r <= 'Ｚ') || (r >= 'ａ' && r <= 'ｚ') || r == '．'
}

func isInvisible(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return false
}

// normalizer drops invisible runes and folds full-width alphanumerics to ASCII so
// option and numbering patterns match. Transformers carry state between calls, so
// every caller gets its own chain.
func normalizer() transform.Transformer {
	return transform.Chain(
		runes.Remove(runes.Predicate(isInvisible)),
		runes.If(runes.Predicate(isFullwidthAlnum), width.Narrow, nil),
	)
}

// Clean normalizes a single paragraph: invisible characters are dropped, full-width
// alphanumerics folded, runs of whitespace collapsed and the ends trimmed.
func Clean(text string) string {
	folded, _, err := transform.String(normalizer(), text)
	if err != nil {
		folded = text
	}
	return strings.Join(strings.FieldsFunc(folded, unicode.IsSpace), " ")
}

// Normalize cleans every paragraph and drops the empty ones. Indices refer to the
// position in the normalized stream.
func Normalize(texts []string) []Paragraph {
	paras := make([]Paragraph, 0, len(texts))
	for _, t := range texts {
		c := Clean(t)
		if c == "" {
			continue
		}
		paras = append(paras, Paragraph{Index: len(paras), Text: c})
	}
	return paras
}
