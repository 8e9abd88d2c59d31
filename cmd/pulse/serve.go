package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-wellbeing/pulse/internal/advice"
	"github.com/opensource-wellbeing/pulse/internal/api"
	"github.com/opensource-wellbeing/pulse/internal/assess"
	"github.com/opensource-wellbeing/pulse/internal/bus"
	"github.com/opensource-wellbeing/pulse/internal/cache"
	"github.com/opensource-wellbeing/pulse/internal/domain"
	"github.com/opensource-wellbeing/pulse/internal/logging"
	"github.com/opensource-wellbeing/pulse/internal/repository"
	"github.com/opensource-wellbeing/pulse/internal/scoring"
	"github.com/opensource-wellbeing/pulse/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var portFlag = &cli.IntFlag{
	Name:  "port",
	Usage: "Port on which the server will listen (overrides config)",
}

var serveCmd = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP API",
	Flags:  []cli.Flag{portFlag},
	Action: runServe,
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet(portFlag.Name) {
		cfg.Server.Port = int(cmd.Int(portFlag.Name))
	}

	slog.SetDefault(logging.New(cfg.Logging, os.Stdout))

	slog.Info("starting pulse",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"model", cfg.Model.Path,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	engine, err := advice.NewEngine(cfg.Suggestions)
	if err != nil {
		return fmt.Errorf("failed to compile suggestion rules: %w", err)
	}
	slog.Info("suggestion engine initialized", "rules_count", engine.RulesCount())

	processor := assess.NewProcessor(loadModel(cfg.Model.Path), engine, cfg.Model.TargetClass)

	var asyncWorker *worker.Worker
	if cfg.Worker.Enabled {
		asyncWorker = worker.NewWorker(busImpl, repo, processor)
		if err := asyncWorker.Start(worker.Config{
			InstitutionIDs: cfg.Worker.Institutions,
			WorkerCount:    cfg.Worker.Count,
			DrainTimeout:   shutdownTimeout,
		}); err != nil {
			return fmt.Errorf("failed to start async worker: %w", err)
		}
	}

	srv := api.NewServer(cfg.Server, processor, api.Options{
		Repository: repo,
		Cache:      cacheImpl,
		EventBus:   busImpl,
		Advice:     engine,
		RateLimit:  cfg.RateLimit,
		Version:    Version,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("pulse is ready", "addr", srv.Addr(), "model_loaded", processor.Ready())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		if asyncWorker != nil {
			if err := asyncWorker.Stop(); err != nil {
				slog.Error("failed to stop async worker", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("pulse shutdown complete")
	return nil
}

// loadModel returns nil when the artifact cannot be used; assessments then
// report "Model not found".
func loadModel(path string) domain.LinearModel {
	m, err := scoring.Load(path)
	if err != nil {
		if errors.Is(err, scoring.ErrModelNotFound) {
			slog.Warn("model artifact not found", "path", path)
		} else {
			slog.Error("failed to load model artifact", "path", path, "error", err)
		}
		return nil
	}
	slog.Info("model loaded", "path", path, "classes", m.ClassLabels())
	return m
}
