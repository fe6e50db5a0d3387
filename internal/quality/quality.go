// Package quality scores candidate question lines and validates extracted questions.
package quality

import (
	"regexp"
	"strings"

	"github.com/knowledge-engine/quizbank/internal/lexicon"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	scoreTagRe     = regexp.MustCompile(`[(（]\d+分/\d+分[)）]`)
	trailingMarkRe = regexp.MustCompile(`标记$`)
	leadingJunkRe  = regexp.MustCompile(`^[^\p{Han}\p{L}\p{N}_（(【\[“"]+`)
	answerLineRe   = regexp.MustCompile(`^(正确答案|标准答案|参考答案|答案)[：:]`)
	optionOnlyRe   = regexp.MustCompile(`^[A-F][.、][^，。？！]*$`)
)

var lowQualityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-F][.、]`),
	regexp.MustCompile(`^(正确答案|标准答案|参考答案|答案)[：:]`),
	regexp.MustCompile(`^[A-F]+$`),
	regexp.MustCompile(`^(显示|展开|收起|查看|点击)`),
	regexp.MustCompile(`^(提交答案|我的答案)`),
	regexp.MustCompile(`^[A-F][，,]\s*[A-F]`),
	regexp.MustCompile(`^(考点|解析)[：:]`),
}

// CleanQuestion strips list numbering, score tags, exam-system residue and extra
// whitespace from a question line.
func CleanQuestion(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = lexicon.NumberedPrefixRe.ReplaceAllString(text, "")
	text = scoreTagRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = trailingMarkRe.ReplaceAllString(text, "")
	text = leadingJunkRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Score rates how much a line looks like a question stem.
func Score(text string) int {
	score := 0
	switch n := lexicon.Len(text); {
	case n > 20:
		score += 2
	case n > 10:
		score++
	}
	if lexicon.HasQuestionMark(text) {
		score += 3
	}
	if lexicon.HasBalancedBrackets(text) {
		score += 2
	}
	score += lexicon.CountContained(text, lexicon.ScoringIndicators)
	score += lexicon.CountContained(text, lexicon.ScoringTerms)
	if lexicon.OptionRe.MatchString(text) {
		score -= 5
	}
	if strings.HasPrefix(text, "正确答案") || strings.HasPrefix(text, "标准答案") {
		score -= 10
	}
	return score
}

// IsLowQuality reports text that is an option, an answer label or exam UI residue
// rather than a question.
func IsLowQuality(text string) bool {
	text = strings.TrimSpace(text)
	if lexicon.Len(text) < 5 {
		return true
	}
	for _, re := range lowQualityPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Selection is the question text chosen from a segment and the paragraph indices
// it was built from.
type Selection struct {
	Text string
	Used []int
}

// Select picks the question text of a marker-anchored segment. The first strongly
// question-like line wins; otherwise the best scoring line above minScore; otherwise
// up to three meaningful lines before the answer label are joined.
func Select(paras []string, minScore int) Selection {
	for i, p := range paras {
		p = strings.TrimSpace(p)
		if lexicon.IsAnswerLabel(p) || lexicon.Len(p) < 8 {
			continue
		}
		if optionOnlyRe.MatchString(p) && lexicon.Len(p) < 60 {
			continue
		}
		clean := CleanQuestion(p)
		if lexicon.Len(clean) > 15 && (lexicon.HasQuestionMark(clean) ||
			strings.ContainsAny(clean, "（）") ||
			lexicon.ContainsAny(clean, lexicon.StrongQuestionWords)) {
			return Selection{Text: clean, Used: []int{i}}
		}
	}

	best, bestScore := -1, minScore-1
	for i, p := range paras {
		if lexicon.IsAnswerLabel(p) {
			continue
		}
		clean := CleanQuestion(p)
		if lexicon.Len(clean) < 10 {
			continue
		}
		if s := Score(clean); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best >= 0 {
		return Selection{Text: CleanQuestion(paras[best]), Used: []int{best}}
	}

	var parts []string
	var used []int
	for i, p := range paras {
		if lexicon.IsAnswerLabel(p) {
			break
		}
		clean := CleanQuestion(p)
		if lexicon.Len(clean) > 8 && !lexicon.OptionRe.MatchString(strings.TrimSpace(p)) && !IsLowQuality(clean) {
			parts = append(parts, clean)
			used = append(used, i)
		}
		if len(parts) >= 3 {
			break
		}
	}
	if combined := strings.Join(parts, " "); lexicon.Len(combined) > 15 && !IsLowQuality(combined) {
		return Selection{Text: combined, Used: used}
	}
	return Selection{}
}

// Validator accepts or rejects an extracted question/answer pair.
type Validator struct {
	min, max     int
	minScore     int
	looseSignals bool
}

// NewValidator returns the validator configured by the strategy.
func NewValidator(s strategy.Strategy) Validator {
	return Validator{min: s.QuestionMin, max: s.QuestionMax, minScore: s.MinScore, looseSignals: s.LooseSignals}
}

// Valid reports whether the pair is good enough to become a record.
func (v Validator) Valid(question, answer string) bool {
	n := lexicon.Len(question)
	if n < v.min || n > v.max {
		return false
	}
	if IsLowQuality(question) || answerLineRe.MatchString(question) {
		return false
	}
	if Score(question) < v.minScore {
		return false
	}
	return v.hasSignal(question, answer)
}

func (v Validator) hasSignal(question, answer string) bool {
	if lexicon.HasQuestionMark(question) || lexicon.HasOpenBracket(question) {
		return true
	}
	if lexicon.OptionMentionRe.MatchString(answer) {
		return true
	}
	hasTrue := strings.Contains(answer, lexicon.TrueToken)
	hasFalse := strings.Contains(answer, lexicon.FalseToken)
	if hasTrue && hasFalse {
		return true
	}
	if v.looseSignals {
		if hasTrue || hasFalse {
			return true
		}
		if lexicon.ContainsAny(question, []string{"选择", "下列", "以下", "什么", "如何", "哪个"}) {
			return true
		}
	}
	return false
}
