package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/galenhq/partner_ingest/internal/domain"
)

// FileProcessor runs the per-file pipeline: stream rows, route accepted
// records into fixed-size batches through the saver, collect rejections, and
// emit the errors companion document when any row was rejected.
type FileProcessor struct {
	log       *slog.Logger
	streamer  *RowStreamer
	saver     RecordSaver
	store     FileStore
	batchSize int
}

func NewFileProcessor(
	log *slog.Logger,
	streamer *RowStreamer,
	saver RecordSaver,
	store FileStore,
	batchSize int,
) *FileProcessor {
	return &FileProcessor{
		log:       log,
		streamer:  streamer,
		saver:     saver,
		store:     store,
		batchSize: batchSize,
	}
}

type errorsDocument struct {
	SourceFile    string                `json:"sourceFile"`
	ProcessedAt   time.Time             `json:"processedAt"`
	TotalRejected int                   `json:"totalRejected"`
	RejectedRows  []*domain.RejectedRow `json:"rejectedRows"`
}

// ProcessFile consumes the stream to completion. Row-level failures are
// collected, never fatal; a terminal stream error or a persistence error
// aborts the file and propagates to the caller.
func (p *FileProcessor) ProcessFile(ctx context.Context, r io.Reader, name string) (*domain.ProcessingResult, error) {
	started := time.Now()

	result := &domain.ProcessingResult{
		FileName: name,
		Outcome:  domain.OutcomeProcessed,
	}

	batch := make([]*domain.CanonicalRecord, 0, p.batchSize)

	for outcome, err := range p.streamer.Rows(ctx, r, name) {
		if err != nil {
			return nil, fmt.Errorf("failed to stream %q: %w", name, err)
		}

		switch {
		case outcome.Record != nil:
			batch = append(batch, outcome.Record)
			if len(batch) >= p.batchSize {
				count, err := p.saver.SaveBatch(ctx, batch, name)
				if err != nil {
					return nil, fmt.Errorf("failed to save batch: %w", err)
				}

				result.RowsAccepted += int(count)
				batch = batch[:0]
			}

		case outcome.Rejected != nil:
			result.RejectedRows = append(result.RejectedRows, outcome.Rejected)
		}
	}

	if len(batch) > 0 {
		count, err := p.saver.SaveBatch(ctx, batch, name)
		if err != nil {
			return nil, fmt.Errorf("failed to save final batch: %w", err)
		}

		result.RowsAccepted += int(count)
	}

	result.RowsRejected = len(result.RejectedRows)
	result.TotalRowsRead = result.RowsAccepted + result.RowsRejected

	if result.RowsRejected > 0 {
		if err := p.writeErrorsFile(ctx, result); err != nil {
			return nil, err
		}
	}

	p.log.InfoContext(ctx, "processed file",
		slog.String("source_file", name),
		slog.Int("accepted", result.RowsAccepted),
		slog.Int("rejected", result.RowsRejected),
		slog.Int("total", result.TotalRowsRead),
		slog.Duration("duration", time.Since(started)),
	)

	return result, nil
}

func (p *FileProcessor) writeErrorsFile(ctx context.Context, result *domain.ProcessingResult) error {
	doc, err := json.MarshalIndent(errorsDocument{
		SourceFile:    result.FileName,
		ProcessedAt:   time.Now().UTC(),
		TotalRejected: result.RowsRejected,
		RejectedRows:  result.RejectedRows,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal errors document: %w", err)
	}

	if err := p.store.WriteErrorsFile(ctx, result.FileName, doc); err != nil {
		return fmt.Errorf("failed to write errors document: %w", err)
	}

	p.log.InfoContext(ctx, "wrote errors document",
		slog.String("source_file", result.FileName),
		slog.Int("total_rejected", result.RowsRejected),
	)

	return nil
}
