package pipeline

import (
	"context"
	"fmt"

	"github.com/galenhq/partner_ingest/internal/domain"
)

// LedgerSaver persists each batch and advances the ingestion ledger's
// accepted-rows counter in one transaction, so the ledger never overcounts
// when a flush fails mid-way.
type LedgerSaver struct {
	inner      RecordSaver
	counter    IngestionCounter
	transactor Transactor
}

func NewLedgerSaver(inner RecordSaver, counter IngestionCounter, transactor Transactor) *LedgerSaver {
	return &LedgerSaver{
		inner:      inner,
		counter:    counter,
		transactor: transactor,
	}
}

func (s *LedgerSaver) SaveBatch(ctx context.Context, records []*domain.CanonicalRecord, sourceFile string) (int64, error) {
	var count int64

	err := s.transactor.WithTransaction(ctx, func(ctx context.Context) error {
		saved, err := s.inner.SaveBatch(ctx, records, sourceFile)
		if err != nil {
			return fmt.Errorf("failed to save records: %w", err)
		}

		count = saved

		if err := s.counter.AddAcceptedRows(ctx, sourceFile, saved); err != nil {
			return fmt.Errorf("failed to advance ledger counter: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}
