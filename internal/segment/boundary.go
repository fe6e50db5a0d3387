package segment

import (
	"fmt"
	"strings"

	"github.com/knowledge-engine/quizbank/internal/lexicon"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

// Kind identifies the pattern that closed a segment.
type Kind int

const (
	// None means the segment was closed by the length cap or the end of the stream.
	None Kind = iota
	AnswerMarker
	ChoiceSequence
	JudgmentPair
	NextQuestionStart
)

func (k Kind) String() string {
	switch k {
	case AnswerMarker:
		return strategy.DetectAnswerMarker
	case ChoiceSequence:
		return strategy.DetectChoiceSequence
	case JudgmentPair:
		return strategy.DetectJudgmentPair
	case NextQuestionStart:
		return strategy.DetectNextQuestionStart
	default:
		return "none"
	}
}

// Match is a recognized boundary. Paragraphs [Start, End) are the boundary content;
// when Include is false the content belongs to the next segment.
type Match struct {
	Kind    Kind
	Start   int
	End     int
	Include bool
}

// Detector recognizes one closing pattern at a scan position.
type Detector interface {
	Kind() Kind
	Match(paras []Paragraph, pos int) (Match, bool)
}

const optionLetters = "ABCDEF"

// AnswerMarkerDetector closes on an explicit answer label line.
type AnswerMarkerDetector struct {
	// Anywhere accepts the label anywhere in the line instead of only at its start.
	Anywhere bool
}

func (d AnswerMarkerDetector) Kind() Kind { return AnswerMarker }

func (d AnswerMarkerDetector) Match(paras []Paragraph, pos int) (Match, bool) {
	if pos >= len(paras) || !isMarker(paras[pos].Text, d.Anywhere) {
		return Match{}, false
	}
	return Match{Kind: AnswerMarker, Start: pos, End: pos + 1, Include: true}, true
}

func isMarker(text string, anywhere bool) bool {
	if anywhere {
		return lexicon.AnswerLabelRe.MatchString(text)
	}
	return lexicon.AnswerLabelStartRe.MatchString(text)
}

// absorbMarker extends end over an answer label line that directly follows it.
func absorbMarker(paras []Paragraph, end int, enabled, anywhere bool) int {
	if enabled && end < len(paras) && isMarker(paras[end].Text, anywhere) {
		return end + 1
	}
	return end
}

// ChoiceSequenceDetector closes on a run of option lines A, B, C... in strict order.
type ChoiceSequenceDetector struct {
	Window       int
	MinLetters   int
	AbsorbMarker bool
	Anywhere     bool
}

func (d ChoiceSequenceDetector) Kind() Kind { return ChoiceSequence }

func (d ChoiceSequenceDetector) Match(paras []Paragraph, pos int) (Match, bool) {
	limit := min(pos+d.Window, len(paras))
	start, end := -1, -1
	found, misses := 0, 0
	for i := pos; i < limit; i++ {
		letter, isOption := optionLetter(paras[i].Text)
		if isOption && found < len(optionLetters) && letter == optionLetters[found] {
			if found == 0 {
				start = i
			}
			found++
			end = i + 1
			misses = 0
			continue
		}
		if isOption && found > 0 {
			// out of order or a gap in the sequence
			break
		}
		misses++
		if misses > 1 {
			break
		}
	}
	if found < d.MinLetters {
		return Match{}, false
	}
	end = absorbMarker(paras, end, d.AbsorbMarker, d.Anywhere)
	return Match{Kind: ChoiceSequence, Start: start, End: end, Include: true}, true
}

func optionLetter(text string) (byte, bool) {
	m := lexicon.OptionLetterRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return m[1][0], true
}

// JudgmentPairDetector closes on the "A 正确 / B 错误" pair of a true/false question.
type JudgmentPairDetector struct {
	Window       int
	AbsorbMarker bool
	Anywhere     bool
}

func (d JudgmentPairDetector) Kind() Kind { return JudgmentPair }

func (d JudgmentPairDetector) Match(paras []Paragraph, pos int) (Match, bool) {
	limit := min(pos+d.Window, len(paras))
	for i := pos; i < limit; i++ {
		text := paras[i].Text
		if lexicon.JudgmentTrueRe.MatchString(text) {
			end := i + 1
			for j := i + 1; j < min(i+3, len(paras)); j++ {
				if lexicon.JudgmentFalseRe.MatchString(paras[j].Text) {
					end = j + 1
					break
				}
			}
			end = absorbMarker(paras, end, d.AbsorbMarker, d.Anywhere)
			return Match{Kind: JudgmentPair, Start: i, End: end, Include: true}, true
		}
		if strings.Contains(text, lexicon.TrueToken) && strings.Contains(text, lexicon.FalseToken) {
			end := absorbMarker(paras, i+1, d.AbsorbMarker, d.Anywhere)
			return Match{Kind: JudgmentPair, Start: i, End: end, Include: true}, true
		}
	}
	return Match{}, false
}

// NextQuestionStartDetector treats a numbered, question-like line as the start of
// the following question.
type NextQuestionStartDetector struct {
	MinLen int
}

func (d NextQuestionStartDetector) Kind() Kind { return NextQuestionStart }

func (d NextQuestionStartDetector) Match(paras []Paragraph, pos int) (Match, bool) {
	if pos >= len(paras) {
		return Match{}, false
	}
	text := paras[pos].Text
	if !lexicon.NumberedRe.MatchString(text) || lexicon.Len(text) <= d.MinLen {
		return Match{}, false
	}
	if !lexicon.HasQuestionMark(text) && !lexicon.ContainsAny(text, lexicon.NextQuestionIndicators) {
		return Match{}, false
	}
	return Match{Kind: NextQuestionStart, Start: pos, End: pos, Include: false}, true
}

// Chain evaluates detectors in priority order.
type Chain []Detector

// Match returns the first detector match at pos.
func (c Chain) Match(paras []Paragraph, pos int) (Match, bool) {
	for _, d := range c {
		if m, ok := d.Match(paras, pos); ok {
			return m, true
		}
	}
	return Match{}, false
}

// NewChain builds the detector chain named by the strategy.
func NewChain(s strategy.Strategy) (Chain, error) {
	chain := make(Chain, 0, len(s.Detectors))
	for _, name := range s.Detectors {
		switch name {
		case strategy.DetectAnswerMarker:
			chain = append(chain, AnswerMarkerDetector{Anywhere: s.MarkerAnywhere})
		case strategy.DetectChoiceSequence:
			chain = append(chain, ChoiceSequenceDetector{
				Window:       s.ChoiceWindow,
				MinLetters:   s.ChoiceMinLetters,
				AbsorbMarker: s.AbsorbTrailingMarker,
				Anywhere:     s.MarkerAnywhere,
			})
		case strategy.DetectJudgmentPair:
			chain = append(chain, JudgmentPairDetector{
				Window:       s.JudgmentWindow,
				AbsorbMarker: s.AbsorbTrailingMarker,
				Anywhere:     s.MarkerAnywhere,
			})
		case strategy.DetectNextQuestionStart:
			chain = append(chain, NextQuestionStartDetector{MinLen: 10})
		default:
			return nil, fmt.Errorf("unknown detector %q", name)
		}
	}
	return chain, nil
}
