package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/0xknstntn/news-checker/internal/cache"
	"github.com/0xknstntn/news-checker/internal/dispatch"
	"github.com/0xknstntn/news-checker/internal/extract"
	"github.com/0xknstntn/news-checker/internal/journal"
	"github.com/0xknstntn/news-checker/internal/llm"
	"github.com/0xknstntn/news-checker/internal/model"
	"github.com/0xknstntn/news-checker/internal/pipeline"
	"github.com/0xknstntn/news-checker/internal/search"
	"github.com/0xknstntn/news-checker/internal/telemetry"
	"github.com/0xknstntn/news-checker/internal/verify"
)

// app holds the wired components shared by the worker, check and batch commands
type app struct {
	cfg        *model.Config
	logger     *slog.Logger
	provider   llm.Provider
	dispatcher dispatch.Dispatcher
	journal    *journal.Store
	pipeline   *pipeline.Pipeline
	shutdown   func(context.Context) error
}

func newLogger(cfg *model.Config) (*slog.Logger, error) {
	if verbose {
		cfg.Log.Level = "debug"
	}
	return telemetry.NewLogger(cfg.Log, os.Stderr)
}

func newApp(ctx context.Context, cfg *model.Config) (*app, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, shutdown: shutdown}

	c := cache.New(cfg.Cache)
	retriever, err := search.NewRetrieverFromConfig(cfg.Search, cfg.Extract.UserAgent, c, cfg.Cache.MemoryTTL, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	extractor := extract.NewExtractorFromConfig(cfg.Extract, c, cfg.Cache.MemoryTTL, logger)

	a.provider, err = llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.Search.Proxy))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create llm provider: %w", err)
	}
	strategy, err := verify.NewStrategy(cfg.Verify.Strategy, a.provider, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	orchestrator := verify.NewOrchestrator(retriever, extractor, strategy, verify.Options{
		Limits:    verify.LimitsFromConfig(*cfg),
		Observers: []verify.Observer{verify.NewLogObserver(logger), telemetry.SpanObserver{}},
	}, logger)

	a.dispatcher, err = dispatch.NewFromConfig(cfg.Dispatch, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var rec pipeline.Recorder
	if cfg.Journal.Path != "" {
		a.journal, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		rec = a.journal
	}

	a.pipeline = pipeline.New(orchestrator, a.dispatcher, rec, logger)
	logger.Debug("components ready",
		"strategy", orchestrator.Strategy(),
		"engines", retriever.Engines(),
		"dispatcher", a.dispatcher.Name(),
		"journal", cfg.Journal.Path)
	return a, nil
}

// Close flushes traces and closes the journal
func (a *app) Close() {
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(context.Background()))
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown incomplete", "err", err)
	}
}
