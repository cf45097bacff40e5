package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/convenio-extractor/internal/app"
	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/async"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/jobs"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
	"github.com/joseph-ayodele/convenio-extractor/internal/export"
	"github.com/joseph-ayodele/convenio-extractor/internal/ingest"
	"github.com/joseph-ayodele/convenio-extractor/internal/repository"
	"github.com/joseph-ayodele/convenio-extractor/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archive, err := app.OpenArchive(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open archive", "error", err)
		os.Exit(1)
	}
	defer archive.Close(logger)

	mgrOpts := []jobs.Option{jobs.WithLogger(logger)}
	var archiveRepo repository.ArchiveRepository
	if archive != nil {
		archiveRepo = archive.Repo
		mgrOpts = append(mgrOpts, jobs.WithTerminalHook(archive.Hook(logger)))
	}
	manager := jobs.NewManager(mgrOpts...)

	store, err := ingest.NewStore(cfg.Storage.UploadDir, cfg.Server.MaxUploadBytes)
	if err != nil {
		logger.Error("failed to prepare upload dir", "dir", cfg.Storage.UploadDir, "error", err)
		os.Exit(1)
	}

	processor := app.NewProcessor(cfg, logger, true)
	runner := async.NewRunner(processor, manager, logger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithJobTimeout(cfg.Worker.JobTimeout),
	)

	handler := server.NewHandler(server.Config{
		Jobs:           manager,
		Queue:          runner,
		Store:          store,
		Exporter:       export.NewService(logger),
		Archive:        archiveRepo,
		ResultsDir:     cfg.Storage.ResultsDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Workers:        runner.Workers(),
		Logger:         logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthServer := server.NewHealthServer(logger)
	var grpcLis net.Listener
	if cfg.Server.GRPCAddr != "" {
		grpcLis, err = net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("convenio-extractor listening", "addr", cfg.Server.HTTPAddr, "workers", runner.Workers())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error { return healthServer.Serve(grpcLis) })
		healthServer.SetServing(true)
	}

	g.Go(func() error {
		jobs.WatchExpired(gctx, manager, cfg.Retention.SweepInterval, cfg.Retention.JobRetention, func(j entity.Job) {
			if err := store.Remove(j.ID); err != nil {
				logger.Warn("sweep.cleanup.failed", "job_id", j.ID, "error", err)
			}
			logger.Info("job expired", "job_id", j.ID, "status", j.Status)
		})
		return nil
	})

	if cfg.Storage.InboxDir != "" {
		inbox := ingest.NewInbox(store, manager, runner, logger)
		g.Go(func() error {
			return inbox.Run(gctx, ingest.WatchConfig{
				Roots:       []string{cfg.Storage.InboxDir},
				InitialScan: true,
				Logger:      logger,
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		healthServer.SetServing(false)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		runner.Shutdown(shutdownCtx)
		healthServer.Stop(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
