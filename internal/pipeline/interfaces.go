package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/galenhq/partner_ingest/internal/domain"
)

// RecordSaver persists one batch of canonical records. Implementations must
// treat (source_file, source_row_index) as a natural key so that resubmitting
// a batch never duplicates rows. Returns the number of rows actually written.
type RecordSaver interface {
	SaveBatch(ctx context.Context, records []*domain.CanonicalRecord, sourceFile string) (int64, error)
}

// FileStore is the blob capability surface required to process one file.
type FileStore interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	IsProcessed(ctx context.Context, name string) (bool, error)
	MarkProcessed(ctx context.Context, name, processingID string) error
	MoveToProcessed(ctx context.Context, name string) error
	MoveToQuarantine(ctx context.Context, name, errorSummary string) error
	WriteErrorsFile(ctx context.Context, name string, doc []byte) error
}

// FileLister enumerates inbound file names awaiting processing.
type FileLister interface {
	ListInbound(ctx context.Context) ([]string, error)
}

// Lease is a held time-bounded exclusive claim on a file name.
type Lease interface {
	Release(ctx context.Context) error
}

// Leaser acquires leases. Obtain returns ErrLeaseHeld when another worker
// already owns the name.
type Leaser interface {
	Obtain(ctx context.Context, name string, ttl time.Duration) (Lease, error)
}

type IngestionsProvider interface {
	Ingestions(ctx context.Context) ([]*domain.Ingestion, error)
}

type IngestionUpdater interface {
	UpdateOrCreateIngestion(ctx context.Context, ingestion *domain.Ingestion) error
}

// IngestionCounter advances the accepted-rows counter of a ledger entry as
// batches are flushed.
type IngestionCounter interface {
	AddAcceptedRows(ctx context.Context, name string, delta int64) error
}

type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
