package search

import (
	"strings"

	"github.com/knowledge-engine/quizbank/internal/record"
)

// Terms splits a query into lower-cased whitespace separated terms.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// haystack is the text a record is matched against.
func haystack(r record.QuestionRecord) string {
	return strings.ToLower(r.Question + " " + r.Answer + " " + strings.Join(r.Keywords, " "))
}

// matches reports whether every term occurs in the record.
func matches(r record.QuestionRecord, terms []string) bool {
	text := haystack(r)
	for _, t := range terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}
