// Package answer assembles the answer block of a question from the paragraphs that
// follow its stem.
package answer

import (
	"strings"

	"github.com/knowledge-engine/quizbank/internal/lexicon"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

// Pending marks a record whose answer could not be recovered from the source.
const Pending = "需要补充答案"

// IsPending reports whether answer is the placeholder rather than real content.
func IsPending(answer string) bool {
	return answer == Pending
}

// Builder keeps the answer-bearing lines of a segment.
type Builder struct {
	shortLineMax int
	looseSignals bool
}

// NewBuilder returns the builder configured by the strategy.
func NewBuilder(s strategy.Strategy) Builder {
	return Builder{shortLineMax: s.ShortLineMax, looseSignals: s.LooseSignals}
}

// Build joins the retained lines in order, or returns Pending when none qualify.
func (b Builder) Build(lines []string) string {
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && b.keep(line) {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return Pending
	}
	return strings.Join(kept, "\n")
}

func (b Builder) keep(line string) bool {
	if lexicon.OptionRe.MatchString(line) || lexicon.IsAnswerLabel(line) {
		return true
	}
	hasTrue := strings.Contains(line, lexicon.TrueToken)
	hasFalse := strings.Contains(line, lexicon.FalseToken)
	if hasTrue && hasFalse {
		return true
	}
	if b.looseSignals && (hasTrue || hasFalse) {
		return true
	}
	return lexicon.Len(line) < b.shortLineMax && lexicon.OptionLetterAnyRe.MatchString(line)
}
