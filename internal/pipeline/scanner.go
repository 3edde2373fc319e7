package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/galenhq/partner_ingest/internal/domain"
)

// Scanner polls the inbound blob prefix and feeds new file names to the
// worker channel. The ingestion ledger keeps already-claimed and finished
// files from being enqueued again; the lease and the processed marker remain
// the authoritative guards downstream.
type Scanner struct {
	log                *slog.Logger
	scanInterval       time.Duration
	files              chan<- string
	lister             FileLister
	ingestionsProvider IngestionsProvider
	ingestionUpdater   IngestionUpdater
}

func NewScanner(
	log *slog.Logger,
	scanInterval time.Duration,
	files chan<- string,
	lister FileLister,
	ingestionsProvider IngestionsProvider,
	ingestionUpdater IngestionUpdater,
) *Scanner {
	return &Scanner{
		log:                log,
		scanInterval:       scanInterval,
		files:              files,
		lister:             lister,
		ingestionsProvider: ingestionsProvider,
		ingestionUpdater:   ingestionUpdater,
	}
}

func (s *Scanner) Run(ctx context.Context) error {
	defer close(s.files)

	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.log.DebugContext(ctx, "scan cycle started")

			err := s.scanFiles(ctx)
			if err != nil {
				s.log.ErrorContext(ctx, "failed to scan inbound files", slog.String("err", err.Error()))
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scanner) scanFiles(ctx context.Context) error {
	statuses, err := s.extractLedger(ctx)
	if err != nil {
		return err
	}

	names, err := s.lister.ListInbound(ctx)
	if err != nil {
		return fmt.Errorf("failed to list inbound files: %w", err)
	}

	for _, name := range names {
		err := s.claimFile(ctx, name, statuses)

		if err != nil {
			s.log.ErrorContext(ctx, "failed to claim file, skipping",
				slog.String("filename", name),
				slog.String("err", err.Error()),
			)
			continue
		}
	}

	return nil
}

func (s *Scanner) extractLedger(ctx context.Context) (map[string]domain.Status, error) {
	ingestions, err := s.ingestionsProvider.Ingestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestions: %w", err)
	}

	statuses := make(map[string]domain.Status, len(ingestions))
	for _, ingestion := range ingestions {
		statuses[ingestion.Name] = ingestion.Status
	}

	return statuses, nil
}

func (s *Scanner) claimFile(ctx context.Context, name string, statuses map[string]domain.Status) error {
	status, ok := statuses[name]
	if ok && status != domain.StatusPending {
		return nil
	}

	err := s.ingestionUpdater.UpdateOrCreateIngestion(ctx, &domain.Ingestion{
		Name:   name,
		Status: domain.StatusProcessing,
	})
	if err != nil {
		return fmt.Errorf("failed to update ingestion status: %w", err)
	}

	s.log.DebugContext(ctx, "claimed inbound file", slog.String("filename", name))

	select {
	case s.files <- name:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}
