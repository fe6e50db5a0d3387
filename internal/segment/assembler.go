package segment

import (
	"github.com/knowledge-engine/quizbank/internal/lexicon"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

// Segment is a contiguous run of paragraphs tentatively forming one question.
type Segment struct {
	Start      int
	Paragraphs []string
	// End is exclusive; scanning resumed there.
	End int
	// Boundary is the detector that closed the segment, None for cap or end of stream.
	Boundary Kind
}

// Assembler walks a paragraph stream and cuts it into segments.
type Assembler struct {
	anchor     strategy.Anchor
	classifier Classifier
	chain      Chain
	maxSegment int
}

// NewAssembler builds an assembler for the strategy.
func NewAssembler(s strategy.Strategy) (*Assembler, error) {
	chain, err := NewChain(s)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		anchor:     s.Anchor,
		classifier: NewClassifier(s.Profile),
		chain:      chain,
		maxSegment: s.MaxSegment,
	}, nil
}

// Segments runs the scanning/collecting state machine over paras.
func (a *Assembler) Segments(paras []Paragraph) []Segment {
	var segments []Segment
	pos := 0
	for pos < len(paras) {
		if a.anchor == strategy.AnchorQuestionStart && !a.classifier.IsQuestionStart(paras[pos].Text) {
			pos++
			continue
		}
		seg := a.collect(paras, pos)
		segments = append(segments, seg)
		pos = seg.End
	}
	return segments
}

func (a *Assembler) collect(paras []Paragraph, start int) Segment {
	seg := Segment{Start: start}
	probe := start
	if a.anchor == strategy.AnchorQuestionStart {
		seg.Paragraphs = append(seg.Paragraphs, paras[start].Text)
		probe = start + 1
	}
	for probe < len(paras) && len(seg.Paragraphs) < a.maxSegment {
		m, ok := a.chain.Match(paras, probe)
		// a boundary that leaves nothing behind would stall the scan
		if ok && (m.Include || m.Start > start) {
			// a lookahead match must not swallow the stem of the next question
			if next, found := a.stemIn(paras, probe, m.Start); found {
				seg.Paragraphs = appendTexts(seg.Paragraphs, paras[probe:next])
				seg.Boundary = NextQuestionStart
				seg.End = next
				return seg
			}
			seg.Paragraphs = appendTexts(seg.Paragraphs, paras[probe:m.Start])
			seg.Boundary = m.Kind
			if m.Include {
				seg.Paragraphs = appendTexts(seg.Paragraphs, paras[m.Start:m.End])
				seg.End = m.End
			} else {
				seg.End = m.Start
			}
			return seg
		}
		seg.Paragraphs = append(seg.Paragraphs, paras[probe].Text)
		probe++
	}
	seg.End = probe
	return seg
}

// stemIn returns the first numbered question start in paras[from:to]. Marker
// anchored segments split on answer labels only.
func (a *Assembler) stemIn(paras []Paragraph, from, to int) (int, bool) {
	if a.anchor != strategy.AnchorQuestionStart {
		return 0, false
	}
	for i := from; i < to; i++ {
		if lexicon.NumberedRe.MatchString(paras[i].Text) && a.classifier.IsQuestionStart(paras[i].Text) {
			return i, true
		}
	}
	return 0, false
}

func appendTexts(dst []string, paras []Paragraph) []string {
	for _, p := range paras {
		dst = append(dst, p.Text)
	}
	return dst
}
