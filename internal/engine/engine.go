package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/knowledge-engine/quizbank/internal/config"
	"github.com/knowledge-engine/quizbank/internal/dedup"
	"github.com/knowledge-engine/quizbank/internal/extract"
	"github.com/knowledge-engine/quizbank/internal/record"
	"github.com/knowledge-engine/quizbank/internal/storage"
)

// ErrRunning is returned when a run is requested while another is in progress.
var ErrRunning = errors.New("extraction already running")

// SourceReader turns a source path or URL into paragraphs
type SourceReader interface {
	Read(ctx context.Context, source string) ([]string, error)
}

// Engine orchestrates reading, extraction, merging and persistence
type Engine struct {
	Config   *config.Config
	Logger   *logrus.Entry
	Reader   SourceReader
	Pipeline *extract.Pipeline
	Storage  storage.CatalogStorage

	// State
	isRunning bool
	mu        sync.RWMutex

	// Stats
	Stats EngineStats
}

type EngineStats struct {
	Runs      int64
	LastRunID string
	LastError string
	StartTime time.Time
	LastRun   *RunSummary
}

// CategorySummary is the outcome of one category in a run.
type CategorySummary struct {
	Category string `json:"category"`
	Records  int    `json:"records"`
	FirstID  int    `json:"first_id"`
	LastID   int    `json:"last_id"`
}

// RunSummary aggregates a run for operators.
type RunSummary struct {
	RunID      string            `json:"run_id"`
	Strategy   string            `json:"strategy"`
	Sources    int               `json:"sources"`
	Failed     []string          `json:"failed"`
	Total      int               `json:"total"`
	Categories []CategorySummary `json:"categories"`
	Stats      extract.Stats     `json:"stats"`
	Duration   string            `json:"duration"`
}

// RunResult is the catalog produced by a run and its summary.
type RunResult struct {
	Catalog *record.Catalog
	Summary RunSummary
}

func NewEngine(cfg *config.Config, logger *logrus.Entry, reader SourceReader, store storage.CatalogStorage) (*Engine, error) {
	pipeline, err := extract.NewPipeline(cfg.Extract.Strategy, cfg.Extract.Timestamp, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Config:   cfg,
		Logger:   logger.WithField("component", "engine"),
		Reader:   reader,
		Pipeline: pipeline,
		Storage:  store,
		Stats:    EngineStats{StartTime: time.Now()},
	}, nil
}

// Run extracts every source concurrently, merges the results per category in
// source order, renumbers ids globally and saves the catalog when storage is set.
// A source that cannot be read contributes no records; the run continues.
func (e *Engine) Run(ctx context.Context, sources []config.Source) (*RunResult, error) {
	e.mu.Lock()
	if e.isRunning {
		e.mu.Unlock()
		return nil, ErrRunning
	}
	e.isRunning = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.isRunning = false
		e.mu.Unlock()
	}()

	started := time.Now()
	runID := uuid.NewString()
	log := e.Logger.WithFields(logrus.Fields{"run_id": runID, "strategy": e.Pipeline.Strategy().Name})
	log.WithField("sources", len(sources)).Info("Extraction started")

	sources = config.NormalizeSources(sources)
	results := make([]extract.Result, len(sources))
	failed := make([]bool, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.Config.Extract.Workers))
	for i, src := range sources {
		g.Go(func() error {
			paras, err := e.Reader.Read(gctx, src.Path)
			if err != nil {
				log.WithFields(logrus.Fields{
					"source":   src.Path,
					"category": src.Category,
				}).WithError(err).Error("Failed to read source")
				failed[i] = true
				return nil
			}
			results[i] = e.Pipeline.Extract(extract.Document{
				Category:   src.Category,
				StartID:    src.StartID,
				Paragraphs: paras,
			})
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		e.recordError(err)
		return nil, fmt.Errorf("extraction aborted: %w", err)
	}

	catalog := record.NewCatalog()
	summary := RunSummary{RunID: runID, Strategy: e.Pipeline.Strategy().Name, Sources: len(sources), Failed: []string{}}
	for i, src := range sources {
		catalog.Append(src.Category, results[i].Records...)
		summary.Stats.Add(results[i].Stats)
		if failed[i] {
			summary.Failed = append(summary.Failed, src.Path)
		}
	}
	dedup.Renumber(catalog)

	for _, cat := range catalog.Categories() {
		recs := catalog.Records(cat)
		cs := CategorySummary{Category: cat, Records: len(recs)}
		if len(recs) > 0 {
			cs.FirstID, cs.LastID = recs[0].ID, recs[len(recs)-1].ID
		}
		summary.Categories = append(summary.Categories, cs)
		log.WithFields(logrus.Fields{
			"category": cat,
			"records":  cs.Records,
			"first_id": cs.FirstID,
			"last_id":  cs.LastID,
		}).Info("Category extracted")
	}
	summary.Total = catalog.Len()
	summary.Duration = time.Since(started).String()

	if e.Storage != nil {
		if err := e.Storage.Save(ctx, catalog); err != nil {
			e.recordError(err)
			return nil, fmt.Errorf("failed to save catalog: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"total":      summary.Total,
		"rejected":   summary.Stats.Rejected,
		"duplicates": summary.Stats.Duplicates,
		"pending":    summary.Stats.Pending,
		"failed":     len(summary.Failed),
	}).Info("Extraction finished")

	e.mu.Lock()
	e.Stats.Runs++
	e.Stats.LastRunID = runID
	e.Stats.LastError = ""
	e.Stats.LastRun = &summary
	e.mu.Unlock()

	return &RunResult{Catalog: catalog, Summary: summary}, nil
}

func (e *Engine) recordError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Stats.LastError = err.Error()
}

func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

// Snapshot returns a copy of the engine statistics.
func (e *Engine) Snapshot() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.Stats
}
