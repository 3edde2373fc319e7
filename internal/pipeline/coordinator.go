package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/galenhq/partner_ingest/internal/domain"
	"github.com/google/uuid"
)

// Coordinator guards one file's processing attempt: idempotency marker check,
// lease acquisition, delegation to the processor, and the terminal
// mark-and-move or quarantine transition. The lease is held for a fixed
// duration and never renewed; a run that outlives it can lose exclusivity,
// which the idempotent persistence key tolerates.
type Coordinator struct {
	log       *slog.Logger
	store     FileStore
	leaser    Leaser
	processor *FileProcessor
	ledger    IngestionUpdater
	leaseTTL  time.Duration
}

func NewCoordinator(
	log *slog.Logger,
	store FileStore,
	leaser Leaser,
	processor *FileProcessor,
	ledger IngestionUpdater,
	leaseTTL time.Duration,
) *Coordinator {
	return &Coordinator{
		log:       log,
		store:     store,
		leaser:    leaser,
		processor: processor,
		ledger:    ledger,
		leaseTTL:  leaseTTL,
	}
}

// ProcessFile runs the full state machine for one inbound file. Both the
// already-processed and the lease-contended cases are silent no-op outcomes,
// not errors. A fatal processing failure quarantines the file and is then
// re-signaled to the caller.
func (c *Coordinator) ProcessFile(ctx context.Context, name string) (*domain.ProcessingResult, error) {
	log := c.log.With(slog.String("source_file", name))

	processed, err := c.store.IsProcessed(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check processed marker: %w", err)
	}

	if processed {
		log.InfoContext(ctx, "file already processed, skipping")
		return &domain.ProcessingResult{FileName: name, Outcome: domain.OutcomeAlreadyProcessed}, nil
	}

	lease, err := c.leaser.Obtain(ctx, name, c.leaseTTL)
	if errors.Is(err, ErrLeaseHeld) {
		log.InfoContext(ctx, "lease held by another worker, skipping")
		return &domain.ProcessingResult{FileName: name, Outcome: domain.OutcomeSkipped}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to obtain lease: %w", err)
	}

	result, processErr := c.processLeased(ctx, log, name, lease)
	if processErr != nil {
		c.quarantine(ctx, log, name, processErr)
		c.recordRun(ctx, log, &domain.Ingestion{
			Name:         name,
			Status:       domain.StatusError,
			ErrorMessage: processErr.Error(),
			ProcessedAt:  timePtr(time.Now()),
		})

		return nil, processErr
	}

	c.recordRun(ctx, log, ingestionFromResult(result))

	return result, nil
}

// processLeased does the work that requires lease ownership. The lease is
// released on every return path; a release failure is logged only since the
// lease expires on its own.
func (c *Coordinator) processLeased(
	ctx context.Context,
	log *slog.Logger,
	name string,
	lease Lease,
) (_ *domain.ProcessingResult, err error) {
	defer func() {
		if releaseErr := lease.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			log.WarnContext(ctx, "failed to release lease", slog.String("err", releaseErr.Error()))
		}
	}()

	c.recordRun(ctx, log, &domain.Ingestion{Name: name, Status: domain.StatusProcessing})

	rc, err := c.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	result, err := c.processor.ProcessFile(ctx, rc, name)
	if err != nil {
		return nil, err
	}

	processingID := uuid.NewString()

	if err := c.store.MarkProcessed(ctx, name, processingID); err != nil {
		return nil, fmt.Errorf("failed to set processed marker: %w", err)
	}

	if err := c.store.MoveToProcessed(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to relocate processed file: %w", err)
	}

	log.InfoContext(ctx, "file processed",
		slog.String("processing_id", processingID),
		slog.Int("accepted", result.RowsAccepted),
		slog.Int("rejected", result.RowsRejected),
	)

	return result, nil
}

// quarantine relocates a fatally failed file. Its own failure is logged but
// never masks the original error.
func (c *Coordinator) quarantine(ctx context.Context, log *slog.Logger, name string, cause error) {
	log.ErrorContext(ctx, "processing failed, quarantining file", slog.String("err", cause.Error()))

	if err := c.store.MoveToQuarantine(context.WithoutCancel(ctx), name, cause.Error()); err != nil {
		log.ErrorContext(ctx, "failed to quarantine file", slog.String("err", err.Error()))
	}
}

func (c *Coordinator) recordRun(ctx context.Context, log *slog.Logger, ingestion *domain.Ingestion) {
	if err := c.ledger.UpdateOrCreateIngestion(context.WithoutCancel(ctx), ingestion); err != nil {
		log.WarnContext(ctx, "failed to update ingestion ledger", slog.String("err", err.Error()))
	}
}

func ingestionFromResult(result *domain.ProcessingResult) *domain.Ingestion {
	ingestion := &domain.Ingestion{
		Name:         result.FileName,
		Status:       domain.StatusDone,
		RowsAccepted: result.RowsAccepted,
		RowsRejected: result.RowsRejected,
		TotalRows:    result.TotalRowsRead,
		ProcessedAt:  timePtr(time.Now()),
	}

	if !result.Succeeded() {
		ingestion.Status = domain.StatusError
		ingestion.ErrorMessage = "all rows rejected"
	}

	return ingestion
}

func timePtr(t time.Time) *time.Time { return &t }
