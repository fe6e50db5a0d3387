// Package search serves the extracted catalog: term search, CRUD, local-cache
// merge, statistics and random practice samples.
package search

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/knowledge-engine/quizbank/internal/answer"
	"github.com/knowledge-engine/quizbank/internal/keyword"
	"github.com/knowledge-engine/quizbank/internal/record"
)

// AllCategories selects every category in Search and Random.
const AllCategories = "all"

var (
	// ErrNotFound is returned for an id that is not in the index.
	ErrNotFound = errors.New("question not found")
	// ErrInvalid is returned for a question missing required fields.
	ErrInvalid = errors.New("invalid question")
)

// NewQuestion is the input of Add.
type NewQuestion struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Patch lists the fields Update changes; zero values keep the current value.
type Patch struct {
	Category string   `json:"category,omitempty"`
	Question string   `json:"question,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Statistics summarizes the index.
type Statistics struct {
	Total      int            `json:"total"`
	Pending    int            `json:"pending"`
	Categories map[string]int `json:"categories"`
}

// Index is an in-memory, category ordered question bank safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	catalog  *record.Catalog
	keywords keyword.Extractor
	cache    *lru.Cache[string, []record.QuestionRecord]
	now      func() time.Time
}

// NewIndex indexes a copy of c. cacheSize bounds the number of cached queries.
func NewIndex(c *record.Catalog, extractor keyword.Extractor, cacheSize int) (*Index, error) {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, []record.QuestionRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}
	if c == nil {
		c = record.NewCatalog()
	}
	return &Index{
		catalog:  clone(c),
		keywords: extractor,
		cache:    cache,
		now:      time.Now,
	}, nil
}

// SetClock replaces the time source used for new timestamps.
func (ix *Index) SetClock(now func() time.Time) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.now = now
}

// Search returns, in catalog order, the records of category containing every
// term of query in question, answer or keywords. An empty query matches all.
// Results are cached until the next mutation and must not be modified.
func (ix *Index) Search(query, category string) []record.QuestionRecord {
	terms := Terms(query)
	key := category + "\x00" + strings.Join(terms, " ")

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if hits, ok := ix.cache.Get(key); ok {
		return hits
	}
	hits := []record.QuestionRecord{}
	for _, r := range ix.scope(category) {
		if matches(r, terms) {
			hits = append(hits, r)
		}
	}
	ix.cache.Add(key, hits)
	return hits
}

// Get returns the record with id.
func (ix *Index) Get(id int) (record.QuestionRecord, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	cat, i, ok := ix.find(id)
	if !ok {
		return record.QuestionRecord{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return ix.catalog.Records(cat)[i], nil
}

// Add stores a new question under the next free id.
func (ix *Index) Add(q NewQuestion) (record.QuestionRecord, error) {
	q.Category = strings.TrimSpace(q.Category)
	q.Question = strings.TrimSpace(q.Question)
	q.Answer = strings.TrimSpace(q.Answer)
	if q.Category == "" || q.Category == AllCategories || q.Question == "" {
		return record.QuestionRecord{}, fmt.Errorf("%w: category and question are required", ErrInvalid)
	}
	if q.Answer == "" {
		q.Answer = answer.Pending
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	stamp := record.Stamp(ix.now())
	r := record.QuestionRecord{
		ID:         ix.maxID() + 1,
		Category:   q.Category,
		Question:   q.Question,
		Answer:     q.Answer,
		Keywords:   ix.keywords.Extract(q.Question + " " + q.Answer),
		CreateTime: stamp,
		UpdateTime: stamp,
	}
	ix.catalog.Append(r.Category, r)
	ix.cache.Purge()
	return r, nil
}

// Update applies p to the record with id and refreshes its update time.
// Keywords are re-derived when the text changes and p carries none.
func (ix *Index) Update(id int, p Patch) (record.QuestionRecord, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	cat, i, ok := ix.find(id)
	if !ok {
		return record.QuestionRecord{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	r := ix.catalog.Records(cat)[i]
	textChanged := false
	if q := strings.TrimSpace(p.Question); q != "" && q != r.Question {
		r.Question, textChanged = q, true
	}
	if a := strings.TrimSpace(p.Answer); a != "" && a != r.Answer {
		r.Answer, textChanged = a, true
	}
	switch {
	case len(p.Keywords) > 0:
		r.Keywords = append([]string(nil), p.Keywords...)
	case textChanged:
		r.Keywords = ix.keywords.Extract(r.Question + " " + r.Answer)
	}
	r.UpdateTime = record.Stamp(ix.now())

	if c := strings.TrimSpace(p.Category); c != "" && c != AllCategories && c != cat {
		ix.remove(cat, i)
		r.Category = c
		ix.catalog.Append(c, r)
	} else {
		ix.catalog.Records(cat)[i] = r
	}
	ix.cache.Purge()
	return r, nil
}

// Delete removes the record with id.
func (ix *Index) Delete(id int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	cat, i, ok := ix.find(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	ix.remove(cat, i)
	ix.cache.Purge()
	return nil
}

// Merge adds the records of other whose id is not yet present anywhere in the
// index, the way a locally cached bank is folded into a freshly loaded one. It
// returns the number of records added.
func (ix *Index) Merge(other *record.Catalog) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	present := make(map[int]bool, ix.catalog.Len())
	for _, r := range ix.catalog.All() {
		present[r.ID] = true
	}
	added := 0
	for _, cat := range other.Categories() {
		for _, r := range other.Records(cat) {
			if present[r.ID] {
				continue
			}
			present[r.ID] = true
			ix.catalog.Append(cat, r)
			added++
		}
	}
	if added > 0 {
		ix.cache.Purge()
	}
	return added
}

// Statistics counts records per category.
func (ix *Index) Statistics() Statistics {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	st := Statistics{Categories: make(map[string]int)}
	for _, cat := range ix.catalog.Categories() {
		recs := ix.catalog.Records(cat)
		st.Categories[cat] = len(recs)
		st.Total += len(recs)
		for _, r := range recs {
			if answer.IsPending(r.Answer) {
				st.Pending++
			}
		}
	}
	return st
}

// Random returns up to n distinct records of category in random order.
func (ix *Index) Random(n int, category string) []record.QuestionRecord {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	pool := ix.scope(category)
	if n > len(pool) {
		n = len(pool)
	}
	sample := make([]record.QuestionRecord, 0, max(n, 0))
	for _, i := range rand.Perm(len(pool))[:max(n, 0)] {
		sample = append(sample, pool[i])
	}
	return sample
}

// Replace swaps the indexed catalog for a copy of c.
func (ix *Index) Replace(c *record.Catalog) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.catalog = clone(c)
	ix.cache.Purge()
}

// Snapshot returns a copy of the indexed catalog.
func (ix *Index) Snapshot() *record.Catalog {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return clone(ix.catalog)
}

func (ix *Index) scope(category string) []record.QuestionRecord {
	if category == "" || category == AllCategories {
		return ix.catalog.All()
	}
	return ix.catalog.Records(category)
}

func (ix *Index) find(id int) (string, int, bool) {
	for _, cat := range ix.catalog.Categories() {
		for i, r := range ix.catalog.Records(cat) {
			if r.ID == id {
				return cat, i, true
			}
		}
	}
	return "", 0, false
}

func (ix *Index) remove(cat string, i int) {
	recs := ix.catalog.Records(cat)
	kept := append(append([]record.QuestionRecord{}, recs[:i]...), recs[i+1:]...)
	ix.catalog.Set(cat, kept)
}

func (ix *Index) maxID() int {
	id := 0
	for _, r := range ix.catalog.All() {
		id = max(id, r.ID)
	}
	return id
}

func clone(c *record.Catalog) *record.Catalog {
	out := record.NewCatalog()
	for _, cat := range c.Categories() {
		out.Set(cat, c.Records(cat))
	}
	return out
}
