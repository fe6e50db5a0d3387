// Package strategy defines the tunables of the extraction pipeline and the named
// presets that reproduce the three historical extraction profiles.
package strategy

import (
	"errors"
	"fmt"
	"strings"
)

// Anchor decides where a segment may open.
type Anchor string

const (
	// AnchorQuestionStart opens a segment only on a paragraph the start classifier accepts.
	AnchorQuestionStart Anchor = "question_start"
	// AnchorMarker keeps a segment open at all times; answer markers close it.
	AnchorMarker Anchor = "marker"
)

// Profile selects the question-start classifier thresholds.
type Profile string

const (
	ProfileStrict Profile = "strict"
	ProfileLoose  Profile = "loose"
)

// Detector names, in the vocabulary used by profiles and YAML overrides.
const (
	DetectAnswerMarker      = "answer_marker"
	DetectChoiceSequence    = "choice_sequence"
	DetectJudgmentPair      = "judgment_pair"
	DetectNextQuestionStart = "next_question_start"
)

// Strategy is the full configuration of one extraction run.
type Strategy struct {
	Name    string  `yaml:"name"`
	Anchor  Anchor  `yaml:"anchor"`
	Profile Profile `yaml:"profile"`

	// Detectors lists boundary detectors in priority order.
	Detectors []string `yaml:"detectors"`
	// MaxSegment caps the paragraphs of one segment.
	MaxSegment int `yaml:"max_segment"`

	ChoiceWindow     int  `yaml:"choice_window"`
	ChoiceMinLetters int  `yaml:"choice_min_letters"`
	JudgmentWindow   int  `yaml:"judgment_window"`
	MarkerAnywhere   bool `yaml:"marker_anywhere"`
	// AbsorbTrailingMarker lets option and judgment boundaries swallow an answer label
	// that directly follows them.
	AbsorbTrailingMarker bool `yaml:"absorb_trailing_marker"`

	QuestionMin int `yaml:"question_min"`
	QuestionMax int `yaml:"question_max"`
	MinScore    int `yaml:"min_score"`
	// SelectScore is the score a line needs to be picked as question text when the
	// segment has no obvious stem (marker anchoring only).
	SelectScore int `yaml:"select_score"`
	// LooseSignals accepts a single correctness token or a question word as content signal.
	LooseSignals bool `yaml:"loose_signals"`
	// ShortLineMax is the rune length under which a line mentioning an option letter
	// still counts as answer content.
	ShortLineMax int `yaml:"short_line_max"`

	KeywordCap    int `yaml:"keyword_cap"`
	GenericMaxLen int `yaml:"generic_max_len"`

	FingerprintLen int `yaml:"fingerprint_len"`
	FingerprintMin int `yaml:"fingerprint_min"`
	// Similarity above which a fingerprint collision is treated as a duplicate.
	// Zero disables the rescue of colliding records.
	Similarity float64 `yaml:"similarity"`
}

const (
	Boundary   = "boundary"
	Aggressive = "aggressive"
	Marker     = "marker"
)

// DefaultName is the preset used when nothing is configured.
const DefaultName = Aggressive

var defaultDetectors = []string{DetectAnswerMarker, DetectChoiceSequence, DetectJudgmentPair, DetectNextQuestionStart}

// ErrUnknownPreset is returned for a preset name that does not exist.
var ErrUnknownPreset = errors.New("unknown strategy preset")

// Preset returns a fresh copy of the named preset.
func Preset(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Boundary:
		return Strategy{
			Name:                 Boundary,
			Anchor:               AnchorQuestionStart,
			Profile:              ProfileStrict,
			Detectors:            append([]string(nil), defaultDetectors...),
			MaxSegment:           50,
			ChoiceWindow:         10,
			ChoiceMinLetters:     4,
			JudgmentWindow:       5,
			AbsorbTrailingMarker: true,
			QuestionMin:          8,
			QuestionMax:          800,
			MinScore:             0,
			ShortLineMax:         2,
			KeywordCap:           8,
			GenericMaxLen:        6,
			FingerprintLen:       100,
			FingerprintMin:       10,
		}, nil
	case Aggressive, "":
		return Strategy{
			Name:                 Aggressive,
			Anchor:               AnchorQuestionStart,
			Profile:              ProfileLoose,
			Detectors:            append([]string(nil), defaultDetectors...),
			MaxSegment:           30,
			ChoiceWindow:         8,
			ChoiceMinLetters:     3,
			JudgmentWindow:       3,
			AbsorbTrailingMarker: true,
			QuestionMin:          5,
			QuestionMax:          1000,
			MinScore:             0,
			LooseSignals:         true,
			ShortLineMax:         100,
			KeywordCap:           6,
			GenericMaxLen:        5,
			FingerprintLen:       60,
			FingerprintMin:       5,
		}, nil
	case Marker:
		return Strategy{
			Name:           Marker,
			Anchor:         AnchorMarker,
			Profile:        ProfileLoose,
			Detectors:      []string{DetectAnswerMarker},
			MaxSegment:     50,
			ChoiceWindow:   10,
			JudgmentWindow: 3,
			MarkerAnywhere: true,
			QuestionMin:    8,
			QuestionMax:    800,
			MinScore:       0,
			SelectScore:    4,
			LooseSignals:   true,
			ShortLineMax:   50,
			KeywordCap:     6,
			GenericMaxLen:  5,
			FingerprintLen: 30,
			FingerprintMin: 4,
			Similarity:     0.9,
		}, nil
	}
	return Strategy{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// Default returns the default preset.
func Default() Strategy {
	s, _ := Preset(DefaultName)
	return s
}

// Names lists the available presets.
func Names() []string {
	return []string{Boundary, Aggressive, Marker}
}

// Validate checks the strategy for values the pipeline cannot work with.
func (s Strategy) Validate() error {
	var errs []error
	if s.Anchor != AnchorQuestionStart && s.Anchor != AnchorMarker {
		errs = append(errs, fmt.Errorf("anchor %q is not supported", s.Anchor))
	}
	if s.Profile != ProfileStrict && s.Profile != ProfileLoose {
		errs = append(errs, fmt.Errorf("profile %q is not supported", s.Profile))
	}
	if len(s.Detectors) == 0 {
		errs = append(errs, errors.New("at least one detector is required"))
	}
	seen := make(map[string]bool, len(s.Detectors))
	for _, d := range s.Detectors {
		switch d {
		case DetectAnswerMarker, DetectChoiceSequence, DetectJudgmentPair, DetectNextQuestionStart:
		default:
			errs = append(errs, fmt.Errorf("unknown detector %q", d))
		}
		if seen[d] {
			errs = append(errs, fmt.Errorf("detector %q listed twice", d))
		}
		seen[d] = true
	}
	if s.MaxSegment <= 0 {
		errs = append(errs, errors.New("max_segment must be positive"))
	}
	if seen[DetectChoiceSequence] && (s.ChoiceWindow <= 0 || s.ChoiceMinLetters <= 0 || s.ChoiceMinLetters > 6) {
		errs = append(errs, errors.New("choice_window must be positive and choice_min_letters within 1..6"))
	}
	if seen[DetectJudgmentPair] && s.JudgmentWindow <= 0 {
		errs = append(errs, errors.New("judgment_window must be positive"))
	}
	if s.QuestionMin <= 0 || s.QuestionMax < s.QuestionMin {
		errs = append(errs, fmt.Errorf("question length range %d..%d is invalid", s.QuestionMin, s.QuestionMax))
	}
	if s.KeywordCap <= 0 || s.GenericMaxLen < 2 {
		errs = append(errs, errors.New("keyword_cap must be positive and generic_max_len at least 2"))
	}
	if s.FingerprintLen <= 0 || s.FingerprintMin < 0 {
		errs = append(errs, errors.New("fingerprint_len must be positive and fingerprint_min non-negative"))
	}
	if s.Similarity < 0 || s.Similarity > 1 {
		errs = append(errs, fmt.Errorf("similarity %.2f outside 0..1", s.Similarity))
	}
	return errors.Join(errs...)
}
