// Package dedup drops near-identical questions and assigns dense record ids.
package dedup

import (
	"strings"
	"unicode"

	"github.com/minio/highwayhash"

	"github.com/knowledge-engine/quizbank/internal/record"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

var hashKey = []byte("quizbank-fingerprint-bucket-key!")

// Fingerprint returns the first n runes of question, lower-cased, with whitespace
// and non-word runes removed.
func Fingerprint(question string, n int) string {
	runes := []rune(strings.TrimSpace(question))
	if len(runes) > n {
		runes = runes[:n]
	}
	return normalize(string(runes))
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Overlap is |A∩B| / max(|A|, |B|) over the rune sets of a and b.
func Overlap(a, b string) float64 {
	setA, setB := runeSet(a), runeSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	common := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			common++
		}
	}
	return float64(common) / float64(max(len(setA), len(setB)))
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{})
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}

type entry struct {
	fingerprint string
	normalized  string
}

// Deduplicator filters records by question fingerprint.
type Deduplicator struct {
	length     int
	min        int
	similarity float64
}

// New returns the deduplicator configured by the strategy.
func New(s strategy.Strategy) Deduplicator {
	return Deduplicator{length: s.FingerprintLen, min: s.FingerprintMin, similarity: s.Similarity}
}

// Filter keeps the first record of every fingerprint in input order. Records whose
// fingerprint is not longer than the minimum are dropped. With a similarity
// threshold, a colliding record survives when its whole question differs enough from
// every kept record sharing the fingerprint. The second return value counts drops.
func (d Deduplicator) Filter(recs []record.QuestionRecord) ([]record.QuestionRecord, int) {
	seen := make(map[uint64][]entry)
	kept := make([]record.QuestionRecord, 0, len(recs))
	for _, r := range recs {
		fp := Fingerprint(r.Question, d.length)
		if len([]rune(fp)) <= d.min {
			continue
		}
		key := bucket(fp)
		e := entry{fingerprint: fp, normalized: normalize(r.Question)}
		if d.duplicate(seen[key], e) {
			continue
		}
		seen[key] = append(seen[key], e)
		kept = append(kept, r)
	}
	return kept, len(recs) - len(kept)
}

func (d Deduplicator) duplicate(bucket []entry, e entry) bool {
	for _, prev := range bucket {
		if prev.fingerprint != e.fingerprint {
			continue
		}
		if d.similarity <= 0 || Overlap(prev.normalized, e.normalized) > d.similarity {
			return true
		}
	}
	return false
}

func bucket(fp string) uint64 {
	return highwayhash.Sum64([]byte(fp), hashKey)
}

// Assign numbers recs densely from first in their current order.
func Assign(recs []record.QuestionRecord, first int) {
	for i := range recs {
		recs[i].ID = first + i
	}
}

// Renumber reassigns ids across the whole catalog, category by category, from 1.
func Renumber(c *record.Catalog) {
	next := 1
	for _, cat := range c.Categories() {
		recs := c.Records(cat)
		Assign(recs, next)
		next += len(recs)
	}
}
