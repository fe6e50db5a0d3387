// Package lexicon holds the read-only vocabularies and line patterns shared by the
// extraction stages. Nothing in here is mutated after package initialization.
package lexicon

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	// NumberedRe matches a numeric list marker at line start ("12." or "12、").
	NumberedRe = regexp.MustCompile(`^\d+[.、]`)
	// NumberedPrefixRe matches the marker together with the spacing after it.
	NumberedPrefixRe = regexp.MustCompile(`^\d+[.、]\s*`)
	// OptionRe matches an option line such as "A. ..." or "C、...".
	OptionRe = regexp.MustCompile(`^[A-F][.、]`)
	// OptionLetterRe captures the letter of an option line.
	OptionLetterRe = regexp.MustCompile(`^([A-Z])[.、]`)
	// OptionMentionRe matches an option marker anywhere in a line.
	OptionMentionRe = regexp.MustCompile(`[A-F][.、]`)
	// OptionLetterAnyRe matches any option letter.
	OptionLetterAnyRe = regexp.MustCompile(`[A-F]`)

	// JudgmentTrueRe and JudgmentFalseRe match the two lines of a true/false pair.
	JudgmentTrueRe  = regexp.MustCompile(`^A[.、]?\s*正确`)
	JudgmentFalseRe = regexp.MustCompile(`^B[.、]?\s*错误`)

	// AnswerLabelRe finds an answer label anywhere in a line.
	AnswerLabelRe = regexp.MustCompile(`(?i)(正确答案|标准答案|参考答案)[：:]`)
	// AnswerLabelStartRe only accepts the label at line start.
	AnswerLabelStartRe = regexp.MustCompile(`(?i)^\s*(正确答案|标准答案|参考答案)[：:]`)
)

const (
	// TrueToken and FalseToken are the correctness tokens of judgment questions.
	TrueToken  = "正确"
	FalseToken = "错误"
)

// QuestionStarters are the words that typically open a question stem.
var QuestionStarters = []string{"下列", "以下", "选择", "哪个", "哪些", "什么", "如何", "根据", "按照", "关于"}

// LooseQuestionWords extends QuestionStarters for the loose start profile.
var LooseQuestionWords = []string{
	"下列", "以下", "选择", "哪个", "哪些", "什么", "如何", "根据", "按照", "关于",
	"下面", "上述", "正确", "错误", "属于", "不属于", "包括", "不包括", "是", "不是",
}

// NextQuestionIndicators mark a numbered line as the start of the following question.
var NextQuestionIndicators = []string{"下列", "以下", "选择", "什么", "如何", "哪个", "哪些"}

// LeanTerms are domain words that qualify a long line as a question start.
var LeanTerms = []string{"精益", "5S", "TPM", "JIT", "PDCA", "看板", "改善", "浪费", "效率", "质量", "成本", "安全"}

// ScoringIndicators add one point each to a candidate question line.
var ScoringIndicators = []string{
	"下列", "以下", "选择", "什么", "如何", "哪个", "哪些",
	"是否", "属于", "包括", "根据", "关于", "计算", "分析",
	"确定", "判断", "识别", "评估", "说法", "做法", "方法",
}

// ScoringTerms are the domain terms that add one point each to a candidate line.
var ScoringTerms = []string{"精益", "5S", "TPM", "JIT", "PDCA", "班组", "现场", "质量", "安全", "成本", "效率", "改善", "标准", "流程", "管理"}

// StrongQuestionWords mark a line as an unambiguous question stem during selection.
var StrongQuestionWords = []string{
	"下列", "以下", "选择", "什么", "如何", "哪个", "哪些",
	"是否", "属于", "包括", "根据", "关于", "计算", "分析",
	"确定", "判断", "识别", "评估", "说法", "做法", "方法",
	"管理", "生产", "精益", "5S", "TPM", "班组", "现场",
	"质量", "安全", "成本", "效率", "改善", "标准", "流程",
}

// DomainTerms is the professional vocabulary preferred by the keyword extractor.
var DomainTerms = []string{
	"精益生产", "精益", "5S", "TPM", "JIT", "PDCA", "QC", "QA", "TQM",
	"班组长", "班组", "现场管理", "现场", "流水线", "生产线", "工艺流程", "工艺",
	"标准化作业", "标准化", "标准作业", "持续改善", "改善", "KAIZEN",
	"价值流图", "价值流", "浪费消除", "浪费", "七大浪费", "效率提升", "效率",
	"品质管理", "品质", "质量控制", "质量", "成本控制", "成本", "交期管理", "交期",
	"安全生产", "安全管理", "安全", "环境保护", "环保", "创新改善", "创新",
	"看板管理", "看板", "拉动生产", "拉动", "单件流", "快速换模", "SMED",
	"自働化", "防错法", "防呆", "目视管理", "目视化", "团队建设", "团队",
	"沟通技巧", "沟通", "领导力", "培训", "技能", "绩效考核", "绩效", "激励",
	"管理", "生产", "制造", "工厂", "车间", "设备", "维护", "检查",
	"库存", "物料", "供应链", "计划", "排程", "节拍",
}

// StopWords never become generic keywords.
var StopWords = toSet([]string{
	"的", "是", "和", "在", "有", "一", "个", "与", "等", "或", "及", "为", "了", "对", "通过",
	"如何", "什么", "哪些", "以下", "包括", "主要", "可以", "需要", "进行", "应该", "能够",
	"根据", "按照", "由于", "因为", "所以", "但是", "然而", "虽然", "正确", "错误", "选择",
})

// DefaultKeywords is returned when no keyword could be derived.
var DefaultKeywords = []string{"精益管理", "班组管理"}

// domainByLength is DomainTerms ordered longest first, ties in vocabulary order.
var domainByLength = func() []string {
	terms := append([]string(nil), DomainTerms...)
	sort.SliceStable(terms, func(i, j int) bool {
		return utf8.RuneCountInString(terms[i]) > utf8.RuneCountInString(terms[j])
	})
	return terms
}()

// DomainTermsByLength returns the domain vocabulary ordered longest first.
func DomainTermsByLength() []string {
	return domainByLength
}

// ContainsAny reports whether s contains at least one of words.
func ContainsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// CountContained returns how many of words occur in s.
func CountContained(s string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}

// HasQuestionMark reports a full-width or ASCII question mark.
func HasQuestionMark(s string) bool {
	return strings.ContainsAny(s, "？?")
}

// HasBalancedBrackets reports a full-width or ASCII bracket pair, opening first.
func HasBalancedBrackets(s string) bool {
	for _, pair := range [][2]string{{"（", "）"}, {"(", ")"}} {
		open := strings.Index(s, pair[0])
		if open >= 0 && strings.Contains(s[open:], pair[1]) {
			return true
		}
	}
	return false
}

// HasOpenBracket reports any opening bracket.
func HasOpenBracket(s string) bool {
	return strings.ContainsAny(s, "（(")
}

// Len counts runes, which is what every length threshold refers to.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// IsAnswerLabel reports an answer label anywhere in the line.
func IsAnswerLabel(s string) bool {
	return AnswerLabelRe.MatchString(s)
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopWord reports membership in StopWords.
func IsStopWord(w string) bool {
	_, ok := StopWords[w]
	return ok
}
