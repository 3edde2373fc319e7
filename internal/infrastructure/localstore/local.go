// Package localstore is the filesystem file store behind the one-shot
// `process` command: it reads a local CSV, writes the errors document next to
// it, and treats every blob transition as a no-op.
package localstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/galenhq/partner_ingest/internal/domain"
	"github.com/galenhq/partner_ingest/internal/pipeline"
)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", name, err)
	}

	return f, nil
}

func (s *Store) IsProcessed(context.Context, string) (bool, error) { return false, nil }

func (s *Store) MarkProcessed(context.Context, string, string) error { return nil }

func (s *Store) MoveToProcessed(context.Context, string) error { return nil }

func (s *Store) MoveToQuarantine(context.Context, string, string) error { return nil }

func (s *Store) WriteErrorsFile(_ context.Context, name string, doc []byte) error {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	path := filepath.Join(s.dir, base+".errors.json")

	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write errors document: %w", err)
	}

	return nil
}

// Leaser hands out uncontended single-process leases for the local path.
type Leaser struct{}

func (Leaser) Obtain(context.Context, string, time.Duration) (pipeline.Lease, error) {
	return noopLease{}, nil
}

type noopLease struct{}

func (noopLease) Release(context.Context) error { return nil }

// Ledger discards ingestion status updates.
type Ledger struct{}

func (Ledger) UpdateOrCreateIngestion(context.Context, *domain.Ingestion) error { return nil }

// Saver acknowledges batches without persisting them, so a local run reports
// realistic accepted counts.
type Saver struct{}

func (Saver) SaveBatch(_ context.Context, records []*domain.CanonicalRecord, _ string) (int64, error) {
	return int64(len(records)), nil
}
