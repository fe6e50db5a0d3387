package segment

import (
	"github.com/knowledge-engine/quizbank/internal/lexicon"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

// Classifier decides whether a paragraph may open a new question. Thresholds are
// exclusive rune lengths; a negative threshold disables the rule.
type Classifier struct {
	QuestionMarkMin int
	VocabularyMin   int
	BracketMin      int
	DomainMin       int
	Vocabulary      []string
}

// NewClassifier returns the classifier for a start profile.
func NewClassifier(p strategy.Profile) Classifier {
	if p == strategy.ProfileLoose {
		return Classifier{
			QuestionMarkMin: 6,
			VocabularyMin:   8,
			BracketMin:      8,
			DomainMin:       12,
			Vocabulary:      lexicon.LooseQuestionWords,
		}
	}
	return Classifier{
		QuestionMarkMin: 10,
		VocabularyMin:   15,
		BracketMin:      15,
		DomainMin:       -1,
		Vocabulary:      lexicon.QuestionStarters,
	}
}

// IsQuestionStart reports whether text qualifies as the first line of a question.
func (c Classifier) IsQuestionStart(text string) bool {
	if lexicon.OptionRe.MatchString(text) {
		return false
	}
	if lexicon.NumberedRe.MatchString(text) {
		return true
	}
	n := lexicon.Len(text)
	if c.QuestionMarkMin >= 0 && n > c.QuestionMarkMin && lexicon.HasQuestionMark(text) {
		return true
	}
	if c.VocabularyMin >= 0 && n > c.VocabularyMin && lexicon.ContainsAny(text, c.Vocabulary) {
		return true
	}
	if c.BracketMin >= 0 && n > c.BracketMin && lexicon.HasBalancedBrackets(text) {
		return true
	}
	if c.DomainMin >= 0 && n > c.DomainMin && lexicon.ContainsAny(text, lexicon.LeanTerms) {
		return true
	}
	return false
}
