// Package extract composes the segmentation stages into the per-document pipeline.
package extract

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/quizbank/internal/answer"
	"github.com/knowledge-engine/quizbank/internal/dedup"
	"github.com/knowledge-engine/quizbank/internal/keyword"
	"github.com/knowledge-engine/quizbank/internal/quality"
	"github.com/knowledge-engine/quizbank/internal/record"
	"github.com/knowledge-engine/quizbank/internal/segment"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

// DefaultTimestamp is stamped on records unless a run configures another time.
var DefaultTimestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Document is the input of one pipeline run.
type Document struct {
	Category string
	// StartID is the id of the first emitted record.
	StartID    int
	Paragraphs []string
}

// Stats counts what happened to the segments of one document.
type Stats struct {
	Paragraphs int `json:"paragraphs"`
	Segments   int `json:"segments"`
	Rejected   int `json:"rejected"`
	Pending    int `json:"pending"`
	Duplicates int `json:"duplicates"`
	Emitted    int `json:"emitted"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Paragraphs += o.Paragraphs
	s.Segments += o.Segments
	s.Rejected += o.Rejected
	s.Pending += o.Pending
	s.Duplicates += o.Duplicates
	s.Emitted += o.Emitted
}

// Result is the output of one pipeline run.
type Result struct {
	Records []record.QuestionRecord
	Stats   Stats
}

// Pipeline turns a paragraph list into question records. It holds no mutable
// state and may be shared between goroutines.
type Pipeline struct {
	strategy  strategy.Strategy
	assembler *segment.Assembler
	validator quality.Validator
	answers   answer.Builder
	keywords  keyword.Extractor
	dedup     dedup.Deduplicator
	timestamp string
	logger    *logrus.Entry
}

// NewPipeline validates the strategy and wires the stages.
func NewPipeline(s strategy.Strategy, timestamp time.Time, logger *logrus.Entry) (*Pipeline, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy %s: %w", s.Name, err)
	}
	assembler, err := segment.NewAssembler(s)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		strategy:  s,
		assembler: assembler,
		validator: quality.NewValidator(s),
		answers:   answer.NewBuilder(s),
		keywords:  keyword.NewExtractor(s),
		dedup:     dedup.New(s),
		timestamp: record.Stamp(timestamp),
		logger:    logger.WithField("component", "pipeline"),
	}, nil
}

// Strategy returns the configuration the pipeline runs with.
func (p *Pipeline) Strategy() strategy.Strategy {
	return p.strategy
}

// Extract runs every stage over doc.
func (p *Pipeline) Extract(doc Document) Result {
	paras := segment.Normalize(doc.Paragraphs)
	segs := p.assembler.Segments(paras)
	stats := Stats{Paragraphs: len(paras), Segments: len(segs)}

	var recs []record.QuestionRecord
	for _, seg := range segs {
		rec, ok := p.build(doc.Category, seg)
		if !ok {
			stats.Rejected++
			p.logger.WithFields(logrus.Fields{
				"category": doc.Category,
				"start":    seg.Start,
				"boundary": seg.Boundary.String(),
			}).Debug("Segment rejected")
			continue
		}
		if answer.IsPending(rec.Answer) {
			stats.Pending++
		}
		recs = append(recs, rec)
	}

	recs, stats.Duplicates = p.dedup.Filter(recs)
	first := doc.StartID
	if first <= 0 {
		first = 1
	}
	dedup.Assign(recs, first)
	stats.Emitted = len(recs)
	return Result{Records: recs, Stats: stats}
}

func (p *Pipeline) build(category string, seg segment.Segment) (record.QuestionRecord, bool) {
	question, content := p.split(seg)
	if question == "" {
		return record.QuestionRecord{}, false
	}
	ans := p.answers.Build(content)
	if !p.validator.Valid(question, ans) {
		return record.QuestionRecord{}, false
	}
	text := question
	if !answer.IsPending(ans) {
		text += "\n" + ans
	}
	return record.QuestionRecord{
		Category:   category,
		Question:   question,
		Answer:     ans,
		Keywords:   p.keywords.Extract(text),
		CreateTime: p.timestamp,
		UpdateTime: p.timestamp,
	}, true
}

// split separates the question text from the lines the answer is built from.
func (p *Pipeline) split(seg segment.Segment) (string, []string) {
	if len(seg.Paragraphs) == 0 {
		return "", nil
	}
	if p.strategy.Anchor == strategy.AnchorQuestionStart {
		return quality.CleanQuestion(seg.Paragraphs[0]), seg.Paragraphs[1:]
	}

	// a marker-anchored segment is only a question once its answer label closed it
	if seg.Boundary == segment.None {
		return "", nil
	}
	sel := quality.Select(seg.Paragraphs, p.strategy.SelectScore)
	if sel.Text == "" {
		return "", nil
	}
	used := make(map[int]bool, len(sel.Used))
	for _, i := range sel.Used {
		used[i] = true
	}
	var content []string
	for i, para := range seg.Paragraphs {
		if !used[i] {
			content = append(content, para)
		}
	}
	return sel.Text, content
}
