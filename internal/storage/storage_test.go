package storage_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/quizbank/internal/record"
	"github.com/knowledge-engine/quizbank/internal/storage"
)

func sampleCatalog(perCategory int) *record.Catalog {
	c := record.NewCatalog()
	id := 1
	for _, cat := range []string{"班组长", "精益经理"} {
		for i := 0; i < perCategory; i++ {
			c.Append(cat, record.QuestionRecord{
				ID:         id,
				Category:   cat,
				Question:   fmt.Sprintf("%s的第%d道题是什么？", cat, i+1),
				Answer:     "A. 选项一\nB. 选项二",
				Keywords:   []string{"班组", "管理"},
				CreateTime: "2024-01-01T00:00:00.000Z",
				UpdateTime: "2024-01-01T00:00:00.000Z",
			})
			id++
		}
	}
	return c
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStorage(dir, "2024-01-01T00:00:00.000Z")
	require.NoError(t, err)
	defer fs.Close()

	c := sampleCatalog(12)
	require.NoError(t, fs.Save(context.Background(), c))

	loaded, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, c.Categories(), loaded.Categories())
	assert.Equal(t, c.All(), loaded.All())

	module, err := os.ReadFile(filepath.Join(dir, storage.ModuleFile))
	require.NoError(t, err)
	assert.Contains(t, string(module), "// 题库数据，共 24 个题目")
	assert.Contains(t, string(module), "let questionDatabase = {\n  \"班组长\": [")
	assert.Contains(t, string(module), "module.exports")

	preview, err := os.ReadFile(filepath.Join(dir, storage.PreviewFile))
	require.NoError(t, err)
	assert.Equal(t, 20, strings.Count(string(preview), "问题: "))
	assert.Contains(t, string(preview), "... 还有 2 个题目")
}

func TestFileStorageLoadMissing(t *testing.T) {
	fs, err := storage.NewFileStorage(t.TempDir(), "")
	require.NoError(t, err)

	_, err = fs.Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrNoCatalog)
}

func TestSQLiteStorage(t *testing.T) {
	ctx := context.Background()
	db, err := storage.NewSQLiteStorage(ctx, filepath.Join(t.TempDir(), "quiz.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNoCatalog)

	c := sampleCatalog(3)
	require.NoError(t, db.Save(ctx, c))
	require.NoError(t, db.Save(ctx, c), "saving twice replaces the catalog")

	loaded, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.Categories(), loaded.Categories())
	assert.Equal(t, c.All(), loaded.All())
}
