package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/galenhq/partner_ingest/internal/config"
	v1 "github.com/galenhq/partner_ingest/internal/controller/http/v1"
	"github.com/galenhq/partner_ingest/internal/infrastructure/blobstore"
	"github.com/galenhq/partner_ingest/internal/infrastructure/redislease"
	"github.com/galenhq/partner_ingest/internal/pipeline"
	"github.com/galenhq/partner_ingest/internal/repository/postgresql"
	"golang.org/x/sync/errgroup"
)

const filesBuffer = 100

type App struct {
	log *slog.Logger
	cfg *config.Config
}

func New(log *slog.Logger, cfg *config.Config) *App {
	return &App{
		log: log,
		cfg: cfg,
	}
}

func (a *App) Run(ctx context.Context) error {
	a.log.InfoContext(ctx, "starting app",
		slog.String("blob_bucket", a.cfg.Blob.Bucket),
		slog.Duration("scan_interval", a.cfg.App.ScanInterval),
		slog.Int("workers", a.cfg.App.WorkerCount),
	)

	a.log.InfoContext(ctx, "establishing postgresql connection",
		slog.String("postgresql_host", a.cfg.PostgreSQL.Host),
		slog.String("postgresql_port", a.cfg.PostgreSQL.Port),
		slog.String("postgresql_dbname", a.cfg.PostgreSQL.DBName),
	)

	pool, err := postgresql.NewConnection(ctx, a.log, a.cfg.PostgreSQL)
	if err != nil {
		return fmt.Errorf("failed to create db connection: %w", err)
	}
	defer pool.Close()

	store, err := blobstore.New(ctx, a.log, a.cfg.Blob)
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}

	leaser, err := redislease.New(ctx, a.cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to create leaser: %w", err)
	}

	recordsRepo := postgresql.NewRecordsRepository(pool)
	ingestionsRepo := postgresql.NewIngestionsRepository(pool)
	txManager := postgresql.NewTxManager(pool)

	if err := ingestionsRepo.ResetProcessingIngestions(ctx); err != nil {
		return fmt.Errorf("failed to reset processing ingestions: %w", err)
	}

	return a.startPipeline(ctx, store, leaser, recordsRepo, ingestionsRepo, txManager)
}

func (a *App) startPipeline(
	ctx context.Context,
	store *blobstore.Store,
	leaser *redislease.Leaser,
	recordsRepo *postgresql.RecordsRepository,
	ingestionsRepo *postgresql.IngestionsRepository,
	txManager *postgresql.TxManager,
) error {
	files := make(chan string, filesBuffer)

	// One breaker shared by every file's persistence path.
	breaker := pipeline.NewSaverBreaker(a.log)
	saver := pipeline.NewResilientSaver(
		a.log,
		pipeline.NewLedgerSaver(recordsRepo, ingestionsRepo, txManager),
		breaker,
		pipeline.DefaultRetryConfig(),
	)

	streamer := pipeline.NewRowStreamer(a.log, a.cfg.App.MaxRowsPerFile)
	processor := pipeline.NewFileProcessor(a.log, streamer, saver, store, a.cfg.App.BatchSize)
	coordinator := pipeline.NewCoordinator(a.log, store, leaser, processor, ingestionsRepo, a.cfg.App.LeaseDuration)
	scanner := pipeline.NewScanner(a.log, a.cfg.App.ScanInterval, files, store, ingestionsRepo, ingestionsRepo)
	server := v1.NewServer(a.cfg.HTTP, recordsRepo, ingestionsRepo)

	erg, ctx := errgroup.WithContext(ctx)

	erg.Go(func() error {
		a.log.InfoContext(ctx, "scanner started")
		return scanner.Run(ctx)
	})

	for i := range a.cfg.App.WorkerCount {
		erg.Go(func() error {
			a.log.InfoContext(ctx, "worker started", slog.Int("worker", i))
			return a.runWorker(ctx, coordinator, files)
		})
	}

	erg.Go(func() error {
		a.log.InfoContext(ctx, "starting http server",
			slog.String("addr", net.JoinHostPort(a.cfg.HTTP.Host, a.cfg.HTTP.Port)),
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}

		return nil
	})

	erg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	a.log.InfoContext(ctx, "all components started")

	if err := erg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.log.ErrorContext(ctx, "pipeline stopped with error", slog.String("err", err.Error()))

		return err
	}

	a.log.InfoContext(ctx, "pipeline stopped gracefully")

	return nil
}

// runWorker processes one file at a time. A failed file is quarantined by the
// coordinator and logged here; it never brings the worker down.
func (a *App) runWorker(ctx context.Context, coordinator *pipeline.Coordinator, files <-chan string) error {
	for {
		select {
		case name, ok := <-files:
			if !ok {
				return nil
			}

			result, err := coordinator.ProcessFile(ctx, name)
			if err != nil {
				a.log.ErrorContext(ctx, "failed to process file",
					slog.String("filename", name),
					slog.String("err", err.Error()),
				)
				continue
			}

			a.log.InfoContext(ctx, "file run finished",
				slog.String("filename", name),
				slog.String("outcome", string(result.Outcome)),
				slog.Bool("succeeded", result.Succeeded()),
			)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
