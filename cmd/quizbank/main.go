package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/quizbank/internal/api"
	"github.com/knowledge-engine/quizbank/internal/config"
	"github.com/knowledge-engine/quizbank/internal/engine"
	"github.com/knowledge-engine/quizbank/internal/keyword"
	"github.com/knowledge-engine/quizbank/internal/reader"
	"github.com/knowledge-engine/quizbank/internal/record"
	"github.com/knowledge-engine/quizbank/internal/search"
	"github.com/knowledge-engine/quizbank/internal/storage"
	"github.com/knowledge-engine/quizbank/internal/strategy"
)

const usage = `usage: quizbank <command> [flags]

commands:
  extract [-strategy name] [-remote] [category=path ...]
      extract questions from the configured or given sources;
      http(s) sources are fetched only with -remote
  serve [-addr host:port]
      serve the saved question bank over HTTP
  strategies
      list the extraction presets
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	entry := newLogger(cfg.Log).WithField("service", "quizbank")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "extract":
		err = runExtract(ctx, cfg, entry, os.Args[2:])
	case "serve":
		err = runServe(ctx, cfg, entry, os.Args[2:])
	case "strategies":
		for _, name := range strategy.Names() {
			fmt.Println(name)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		entry.Fatal(err)
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

type extractFlags struct {
	strategy string
	remote   bool
	sources  []config.Source
}

func parseExtractFlags(args []string) (extractFlags, error) {
	var f extractFlags
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.StringVar(&f.strategy, "strategy", "", "extraction preset ("+strings.Join(strategy.Names(), ", ")+")")
	fs.BoolVar(&f.remote, "remote", false, "allow http(s) sources")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		parsed, err := parseSources(fs.Args())
		if err != nil {
			return f, err
		}
		f.sources = parsed
	}
	return f, nil
}

func runExtract(ctx context.Context, cfg *config.Config, entry *logrus.Entry, args []string) error {
	opts, err := parseExtractFlags(args)
	if err != nil {
		return err
	}
	if opts.strategy != "" {
		if err := cfg.SelectStrategy(opts.strategy); err != nil {
			return err
		}
	}
	sources := cfg.Sources
	if len(opts.sources) > 0 {
		sources = opts.sources
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	eng, err := engine.NewEngine(cfg, entry, newReader(cfg, entry, opts.remote), store)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	res, err := eng.Run(ctx, sources)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(res.Summary, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, entry *logrus.Entry, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	catalog, err := store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoCatalog):
		entry.Warn("No saved question bank, starting empty")
		catalog = record.NewCatalog()
	case err != nil:
		return fmt.Errorf("failed to load question bank: %w", err)
	default:
		entry.Infof("Loaded %d questions in %d categories", catalog.Len(), len(catalog.Categories()))
	}

	index, err := search.NewIndex(catalog, keyword.NewExtractor(cfg.Extract.Strategy), cfg.Server.CacheSize)
	if err != nil {
		return err
	}
	eng, err := engine.NewEngine(cfg, entry, newReader(cfg, entry, cfg.Server.AllowRemote), store)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	return api.NewServer(eng, index, entry).Start(ctx, *addr)
}

func newReader(cfg *config.Config, entry *logrus.Entry, remote bool) *reader.Reader {
	if !remote {
		return reader.New(nil, entry)
	}
	return reader.New(reader.NewFetcher(reader.FetcherOptions{
		Timeout:     cfg.Fetch.Timeout,
		UserAgent:   cfg.Fetch.UserAgent,
		MaxBytes:    cfg.Fetch.MaxBytes,
		RobotsCheck: cfg.Fetch.RobotsCheck,
		HostDelay:   cfg.Fetch.HostDelay,
	}), entry)
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.CatalogStorage, error) {
	if cfg.Output.Format == config.FormatSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Output.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err := storage.NewSQLiteStorage(ctx, cfg.Output.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := storage.NewFileStorage(cfg.Output.Dir, record.Stamp(cfg.Extract.Timestamp))
	if err != nil {
		return nil, err
	}
	return store, nil
}

// parseSources reads category=path arguments. A bare path gets a positional category.
func parseSources(args []string) ([]config.Source, error) {
	sources := make([]config.Source, 0, len(args))
	for _, arg := range args {
		category, path, ok := strings.Cut(arg, "=")
		if !ok || strings.ContainsAny(category, "/:") {
			category, path = "", arg
		}
		if path == "" {
			return nil, fmt.Errorf("source %q has no path", arg)
		}
		sources = append(sources, config.Source{Path: path, Category: category})
	}
	return sources, nil
}
