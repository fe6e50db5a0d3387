package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/quizbank/internal/config"
	"github.com/knowledge-engine/quizbank/internal/extract"
	"github.com/knowledge-engine/quizbank/internal/engine"
	"github.com/knowledge-engine/quizbank/internal/record"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

// Mocks

type MockReader struct {
	mock.Mock
}

func (m *MockReader) Read(ctx context.Context, source string) ([]string, error) {
	args := m.Called(ctx, source)
	paras, _ := args.Get(0).([]string)
	return paras, args.Error(1)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Save(ctx context.Context, c *record.Catalog) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStorage) Load(ctx context.Context) (*record.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Catalog), args.Error(1)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		Extract: config.ExtractConfig{
			Strategy:  strategy.Default(),
			Workers:   2,
			Timestamp: extract.DefaultTimestamp,
		},
	}
}

var sources = []config.Source{
	{Path: "leaders.txt", Category: "班组长", StartID: 1},
	{Path: "managers.txt", Category: "精益经理", StartID: 10000},
	{Path: "broken.docx", Category: "精益经理", StartID: 20000},
}

func newMockReader() *MockReader {
	reader := new(MockReader)
	reader.On("Read", mock.Anything, "leaders.txt").Return([]string{
		"2. 下列哪项正确？", "A. 选项一", "B. 选项二", "C. 选项三", "D. 选项四",
		"这是一个判断题陈述。", "A 正确", "B 错误",
	}, nil)
	reader.On("Read", mock.Anything, "managers.txt").Return([]string{"某题干内容，包含问号？", "正确答案：A"}, nil)
	reader.On("Read", mock.Anything, "broken.docx").Return(nil, errors.New("invalid docx container"))
	return reader
}

func TestRunMergesAndRenumbers(t *testing.T) {
	logger := logrus.New().WithField("test", "engine")
	reader := newMockReader()
	store := new(MockStorage)
	store.On("Save", mock.Anything, mock.AnythingOfType("*record.Catalog")).Return(nil)

	eng, err := engine.NewEngine(testConfig(), logger, reader, store)
	require.NoError(t, err)

	res, err := eng.Run(context.Background(), sources)
	require.NoError(t, err)

	assert.Equal(t, []string{"班组长", "精益经理"}, res.Catalog.Categories())
	var ids []int
	for _, r := range res.Catalog.All() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, ids)

	assert.Equal(t, 3, res.Summary.Total)
	assert.Equal(t, []string{"broken.docx"}, res.Summary.Failed)
	assert.Equal(t, []engine.CategorySummary{
		{Category: "班组长", Records: 2, FirstID: 1, LastID: 2},
		{Category: "精益经理", Records: 1, FirstID: 3, LastID: 3},
	}, res.Summary.Categories)
	assert.NotEmpty(t, res.Summary.RunID)

	assert.False(t, eng.IsRunning())
	stats := eng.Snapshot()
	assert.Equal(t, int64(1), stats.Runs)
	assert.Equal(t, res.Summary.RunID, stats.LastRunID)

	reader.AssertNumberOfCalls(t, "Read", 3)
	store.AssertCalled(t, "Save", mock.Anything, res.Catalog)
}

func TestRunIsDeterministic(t *testing.T) {
	logger := logrus.New().WithField("test", "engine")
	run := func() []record.QuestionRecord {
		eng, err := engine.NewEngine(testConfig(), logger, newMockReader(), nil)
		require.NoError(t, err)
		res, err := eng.Run(context.Background(), sources)
		require.NoError(t, err)
		return res.Catalog.All()
	}

	assert.Equal(t, run(), run())
}

func TestRunReportsStorageFailure(t *testing.T) {
	logger := logrus.New().WithField("test", "engine")
	store := new(MockStorage)
	store.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	eng, err := engine.NewEngine(testConfig(), logger, newMockReader(), store)
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), sources)
	assert.Error(t, err)
	assert.Equal(t, "disk full", eng.Snapshot().LastError)
}

func TestRunCancelled(t *testing.T) {
	logger := logrus.New().WithField("test", "engine")
	eng, err := engine.NewEngine(testConfig(), logger, newMockReader(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Run(ctx, sources)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngineRejectsInvalidStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.Extract.Strategy.QuestionMin = 0

	_, err := engine.NewEngine(cfg, logrus.New().WithField("test", "engine"), newMockReader(), nil)
	assert.Error(t, err)
}
