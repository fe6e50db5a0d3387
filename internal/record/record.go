// Package record defines the question record produced by extraction and the ordered
// category catalog that carries it to storage and search.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the timestamp form used by createTime and updateTime.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// QuestionRecord is one extracted question.
type QuestionRecord struct {
	ID         int      `json:"id"`
	Category   string   `json:"category"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Keywords   []string `json:"keywords"`
	CreateTime string   `json:"createTime"`
	UpdateTime string   `json:"updateTime"`
}

// Stamp formats t in UTC with TimeLayout.
func Stamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Catalog maps categories to their records and remembers category insertion order.
// The zero value is ready to use.
type Catalog struct {
	order []string
	items map[string][]QuestionRecord
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string][]QuestionRecord)}
}

// Append adds records to a category, registering the category on first use.
func (c *Catalog) Append(category string, recs ...QuestionRecord) {
	if c.items == nil {
		c.items = make(map[string][]QuestionRecord)
	}
	if _, ok := c.items[category]; !ok {
		c.order = append(c.order, category)
		c.items[category] = []QuestionRecord{}
	}
	c.items[category] = append(c.items[category], recs...)
}

// Set replaces the records of a category.
func (c *Catalog) Set(category string, recs []QuestionRecord) {
	c.Append(category)
	c.items[category] = append([]QuestionRecord{}, recs...)
}

// Records returns the records of one category. The slice is shared with the catalog.
func (c *Catalog) Records(category string) []QuestionRecord {
	return c.items[category]
}

// Categories returns the categories in insertion order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.order...)
}

// Len counts all records.
func (c *Catalog) Len() int {
	n := 0
	for _, recs := range c.items {
		n += len(recs)
	}
	return n
}

// All flattens the catalog in category order.
func (c *Catalog) All() []QuestionRecord {
	all := make([]QuestionRecord, 0, c.Len())
	for _, cat := range c.order {
		all = append(all, c.items[cat]...)
	}
	return all
}

// MarshalJSON writes a JSON object whose keys follow category order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(c.items[cat])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal category %s: %w", cat, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a category object and keeps the key order of the input.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("catalog must be a JSON object, got %v", tok)
	}
	*c = Catalog{items: make(map[string][]QuestionRecord)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		cat, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected catalog key %v", tok)
		}
		var recs []QuestionRecord
		if err := dec.Decode(&recs); err != nil {
			return fmt.Errorf("failed to decode category %s: %w", cat, err)
		}
		c.Append(cat, recs...)
	}
	_, err = dec.Token()
	return err
}
