package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/knowledge-engine/quizbank/internal/strategy"
)

// categoryStride keeps the id ranges of consecutive categories apart before the
// global renumbering.
const categoryStride = 10000

// Source is one document to extract.
type Source struct {
	Path     string `yaml:"path"`
	Category string `yaml:"category"`
	StartID  int    `yaml:"start_id"`
}

// Profile is the optional YAML run profile.
type Profile struct {
	// Strategy names the preset the overrides apply to.
	Strategy  string    `yaml:"strategy"`
	Overrides yaml.Node `yaml:"overrides"`
	Workers   int       `yaml:"workers"`
	Sources   []Source  `yaml:"sources"`
}

// DefaultSources are the two quiz banks of the lean management contest.
func DefaultSources() []Source {
	return []Source{
		{Path: "班组长精益大赛题库（20250612更新）.docx", Category: "班组长", StartID: 1},
		{Path: "精益经理（20250611更新）(1).docx", Category: "精益经理", StartID: categoryStride},
	}
}

// LoadFile reads a YAML profile.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Apply merges a profile into the configuration. Strategy overrides are decoded
// onto the named preset, or onto the current strategy when none is named.
func (c *Config) Apply(p *Profile) error {
	s := c.Extract.Strategy
	if p.Strategy != "" {
		preset, err := strategy.Preset(p.Strategy)
		if err != nil {
			return err
		}
		s = preset
	}
	if err := p.override(&s); err != nil {
		return err
	}
	c.Extract.Strategy = s

	if p.Workers > 0 {
		c.Extract.Workers = p.Workers
	}
	if len(p.Sources) > 0 {
		c.Sources = NormalizeSources(p.Sources)
	}
	return nil
}

// SelectStrategy switches to the named preset. The strategy overrides of the
// configured profile are decoded onto it again.
func (c *Config) SelectStrategy(name string) error {
	s, err := strategy.Preset(name)
	if err != nil {
		return err
	}
	if c.Extract.ProfilePath != "" {
		p, err := LoadFile(c.Extract.ProfilePath)
		if err != nil {
			return err
		}
		if err := p.override(&s); err != nil {
			return err
		}
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("strategy %s: %w", s.Name, err)
	}
	c.Extract.Strategy = s
	return nil
}

func (p *Profile) override(s *strategy.Strategy) error {
	if p.Overrides.IsZero() {
		return nil
	}
	if err := p.Overrides.Decode(s); err != nil {
		return fmt.Errorf("invalid strategy overrides: %w", err)
	}
	return nil
}

// NormalizeSources fills missing categories and start ids. A source without a
// category is named after its position; a missing start id continues the
// 1, 10000, 20000, ... sequence.
func NormalizeSources(sources []Source) []Source {
	out := make([]Source, len(sources))
	for i, s := range sources {
		if s.Category == "" {
			s.Category = fmt.Sprintf("category-%d", i+1)
		}
		if s.StartID <= 0 {
			s.StartID = max(1, i*categoryStride)
		}
		out[i] = s
	}
	return out
}
