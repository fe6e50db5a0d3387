package search_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/quizbank/internal/answer"
	"github.com/knowledge-engine/quizbank/internal/keyword"
	"github.com/knowledge-engine/quizbank/internal/record"
	"github.com/knowledge-engine/quizbank/internal/search"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

func newIndex(t *testing.T) *search.Index {
	t.Helper()
	c := record.NewCatalog()
	c.Append("班组长",
		record.QuestionRecord{ID: 1, Category: "班组长", Question: "精益生产中下列哪项属于浪费？", Answer: "A. 过量生产\nB. 标准作业", Keywords: []string{"精益生产", "浪费"}},
		record.QuestionRecord{ID: 2, Category: "班组长", Question: "班组长的首要职责是什么？", Answer: answer.Pending, Keywords: []string{"班组长"}},
	)
	c.Append("精益经理", record.QuestionRecord{ID: 3, Category: "精益经理", Question: "TPM的全称是什么？", Answer: "A. Total Productive Maintenance", Keywords: []string{"TPM"}})

	ix, err := search.NewIndex(c, keyword.NewExtractor(strategy.Default()), 16)
	require.NoError(t, err)
	ix.SetClock(func() time.Time { return time.Date(2025, 6, 12, 8, 30, 0, 0, time.UTC) })
	return ix
}

func ids(recs []record.QuestionRecord) []int {
	out := []int{}
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"tpm", "全称"}, search.Terms("  TPM\t全称 "))
}

func TestSearch(t *testing.T) {
	ix := newIndex(t)

	assert.Equal(t, []int{1, 2, 3}, ids(ix.Search("", search.AllCategories)))
	assert.Equal(t, []int{1}, ids(ix.Search("浪费 过量", "")))
	assert.Equal(t, []int{3}, ids(ix.Search("tpm maintenance", "精益经理")))
	assert.Empty(t, ix.Search("tpm", "班组长"))
	assert.Empty(t, ix.Search("浪费 不存在", ""))
}

func TestAddUsesNextID(t *testing.T) {
	ix := newIndex(t)
	before := ix.Search("", "")

	r, err := ix.Add(search.NewQuestion{Category: "班组长", Question: "看板管理的作用是什么？", Answer: "A. 拉动生产"})
	require.NoError(t, err)

	assert.Equal(t, 4, r.ID)
	assert.Equal(t, "2025-06-12T08:30:00.000Z", r.CreateTime)
	assert.Contains(t, r.Keywords, "看板管理")
	assert.Len(t, before, 3, "cached results stay untouched")
	assert.Equal(t, []int{1, 2, 4, 3}, ids(ix.Search("", "")))

	_, err = ix.Add(search.NewQuestion{Category: "班组长"})
	assert.ErrorIs(t, err, search.ErrInvalid)

	r, err = ix.Add(search.NewQuestion{Category: "新分类", Question: "没有答案的题目？"})
	require.NoError(t, err)
	assert.True(t, answer.IsPending(r.Answer))
}

func TestGetUpdateDelete(t *testing.T) {
	ix := newIndex(t)

	r, err := ix.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "班组长的首要职责是什么？", r.Question)

	updated, err := ix.Update(2, search.Patch{Answer: "A. 安全生产"})
	require.NoError(t, err)
	assert.Equal(t, "A. 安全生产", updated.Answer)
	assert.Equal(t, "2025-06-12T08:30:00.000Z", updated.UpdateTime)
	assert.Contains(t, updated.Keywords, "安全生产")
	assert.Equal(t, []int{2}, ids(ix.Search("安全生产", "")))

	moved, err := ix.Update(1, search.Patch{Category: "精益经理"})
	require.NoError(t, err)
	assert.Equal(t, "精益经理", moved.Category)
	assert.Equal(t, []string{"精益生产", "浪费"}, moved.Keywords)
	assert.Equal(t, []int{3, 1}, ids(ix.Search("", "精益经理")))

	require.NoError(t, ix.Delete(3))
	_, err = ix.Get(3)
	assert.ErrorIs(t, err, search.ErrNotFound)
	assert.ErrorIs(t, ix.Delete(3), search.ErrNotFound)
	_, err = ix.Update(99, search.Patch{})
	assert.ErrorIs(t, err, search.ErrNotFound)
}

func TestMerge(t *testing.T) {
	ix := newIndex(t)
	local := record.NewCatalog()
	local.Append("班组长",
		record.QuestionRecord{ID: 1, Category: "班组长", Question: "重复的题目"},
		record.QuestionRecord{ID: 50, Category: "班组长", Question: "本地新增的题目"},
	)
	local.Append("自定义", record.QuestionRecord{ID: 51, Category: "自定义", Question: "自定义分类题目"})

	assert.Equal(t, 2, ix.Merge(local))
	assert.Equal(t, 0, ix.Merge(local))

	st := ix.Statistics()
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, map[string]int{"班组长": 3, "精益经理": 1, "自定义": 1}, st.Categories)
	assert.Equal(t, []string{"班组长", "精益经理", "自定义"}, ix.Snapshot().Categories())
}

func TestMergeKeepsIDsUnique(t *testing.T) {
	ix := newIndex(t)
	local := record.NewCatalog()
	local.Append("班组长", record.QuestionRecord{ID: 3, Category: "班组长", Question: "占用了精益经理题号的题目"})
	local.Append("新分类", record.QuestionRecord{ID: 2, Category: "新分类", Question: "占用了班组长题号的题目"})

	assert.Equal(t, 0, ix.Merge(local))

	got, err := ix.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "精益经理", got.Category)
	assert.Equal(t, 3, ix.Statistics().Total)
	assert.Equal(t, []string{"班组长", "精益经理"}, ix.Snapshot().Categories())
}

func TestRandom(t *testing.T) {
	ix := newIndex(t)

	sample := ix.Random(2, search.AllCategories)
	require.Len(t, sample, 2)
	assert.NotEqual(t, sample[0].ID, sample[1].ID)

	assert.Len(t, ix.Random(10, "班组长"), 2)
	assert.Empty(t, ix.Random(3, "不存在"))
	assert.Empty(t, ix.Random(-1, ""))
}

func TestReplace(t *testing.T) {
	ix := newIndex(t)
	require.Len(t, ix.Search("", ""), 3)

	c := record.NewCatalog()
	c.Append("精益经理", record.QuestionRecord{ID: 7, Category: "精益经理", Question: "新的题目？"})
	ix.Replace(c)

	assert.Equal(t, []int{7}, ids(ix.Search("", "")))
}
