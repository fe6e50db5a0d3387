package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/knowledge-engine/quizbank/internal/record"
)

const (
	CatalogFile = "questions.json"
	ModuleFile  = "questionData.js"
	PreviewFile = "preview.txt"
)

// previewLimit is the number of records per category written to the preview.
const previewLimit = 10

var moduleTemplate = template.Must(template.New("module").Parse(`// 题库数据，共 {{.Total}} 个题目
// 生成时间: {{.Generated}}

let questionDatabase = {{.Data}};

function getAllQuestions() {
    let allQuestions = [];
    Object.keys(questionDatabase).forEach(category => {
        allQuestions = allQuestions.concat(questionDatabase[category]);
    });
    return allQuestions;
}

function getQuestionsByCategory(category) {
    if (category === 'all') {
        return getAllQuestions();
    }
    return questionDatabase[category] || [];
}

if (typeof module !== 'undefined' && module.exports) {
    module.exports = { questionDatabase, getAllQuestions, getQuestionsByCategory };
}
`))

// FileStorage implements CatalogStorage using the local file system
type FileStorage struct {
	baseDir   string
	generated string
	mu        sync.RWMutex
}

// NewFileStorage creates a new file-based storage. generated is the timestamp
// written into the module header.
func NewFileStorage(baseDir, generated string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		baseDir:   baseDir,
		generated: generated,
	}, nil
}

// Save writes the catalog as JSON, as a loadable JS module and as a text preview
func (s *FileStorage) Save(ctx context.Context, c *record.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	var module bytes.Buffer
	err = moduleTemplate.Execute(&module, map[string]any{
		"Total":     c.Len(),
		"Generated": s.generated,
		"Data":      string(data),
	})
	if err != nil {
		return fmt.Errorf("failed to render module: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{CatalogFile, data},
		{ModuleFile, module.Bytes()},
		{PreviewFile, []byte(preview(c))},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(s.baseDir, f.name), f.data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	return nil
}

// Load reads questions.json back
func (s *FileStorage) Load(ctx context.Context) (*record.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.baseDir, CatalogFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCatalog
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	c := record.NewCatalog()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	return c, nil
}

// Close is a no-op for file storage
func (s *FileStorage) Close() error {
	return nil
}

func preview(c *record.Catalog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "题库提取结果 - 总计 %d 个题目\n", c.Len())
	b.WriteString(strings.Repeat("=", 80) + "\n\n")
	for _, cat := range c.Categories() {
		recs := c.Records(cat)
		fmt.Fprintf(&b, "%s - %d 个题目\n", cat, len(recs))
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for i, r := range recs {
			if i == previewLimit {
				fmt.Fprintf(&b, "\n... 还有 %d 个题目\n", len(recs)-previewLimit)
				break
			}
			fmt.Fprintf(&b, "\n题目 %d (ID %d):\n", i+1, r.ID)
			fmt.Fprintf(&b, "问题: %s\n", r.Question)
			fmt.Fprintf(&b, "答案: %s\n", r.Answer)
			fmt.Fprintf(&b, "关键词: %s\n", strings.Join(r.Keywords, ", "))
			b.WriteString(strings.Repeat(".", 60) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
