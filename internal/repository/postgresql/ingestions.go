package postgresql

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/galenhq/partner_ingest/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const TableIngestions = "ingestions"

type IngestionsRepository struct {
	pool *pgxpool.Pool
	qb   sq.StatementBuilderType
}

func NewIngestionsRepository(pool *pgxpool.Pool) *IngestionsRepository {
	return &IngestionsRepository{
		pool: pool,
		qb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *IngestionsRepository) Ingestions(ctx context.Context) ([]*domain.Ingestion, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select(
			"name",
			"status",
			"rows_accepted",
			"rows_rejected",
			"total_rows",
			"error_message",
			"processed_at",
		).
		From(TableIngestions).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}

	ingestions, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[domain.Ingestion])
	if err != nil {
		return nil, collectRowsError(err)
	}

	return ingestions, nil
}

func (r *IngestionsRepository) UpdateOrCreateIngestion(ctx context.Context, ingestion *domain.Ingestion) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Insert(TableIngestions).
		Columns(
			"name",
			"status",
			"rows_accepted",
			"rows_rejected",
			"total_rows",
			"error_message",
			"processed_at",
		).
		Values(
			ingestion.Name,
			ingestion.Status,
			ingestion.RowsAccepted,
			ingestion.RowsRejected,
			ingestion.TotalRows,
			ingestion.ErrorMessage,
			ingestion.ProcessedAt,
		).
		Suffix(`ON CONFLICT (name) DO UPDATE SET
			status = EXCLUDED.status,
			rows_rejected = EXCLUDED.rows_rejected,
			total_rows = EXCLUDED.total_rows,
			error_message = EXCLUDED.error_message,
			processed_at = EXCLUDED.processed_at
		`).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	_, err = db.Exec(ctx, sql, args...)
	if err != nil {
		return executeQueryError(err)
	}

	return nil
}

// AddAcceptedRows advances the accepted counter as batches flush. The counter
// is kept out of the upsert above so a final status write cannot clobber it.
func (r *IngestionsRepository) AddAcceptedRows(ctx context.Context, name string, delta int64) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Update(TableIngestions).
		Set("rows_accepted", sq.Expr("rows_accepted + ?", delta)).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	_, err = db.Exec(ctx, sql, args...)
	if err != nil {
		return classifyError(executeQueryError(err))
	}

	return nil
}

// ResetProcessingIngestions returns files stuck in processing (a previous
// run died mid-flight) to pending so the scanner picks them up again.
func (r *IngestionsRepository) ResetProcessingIngestions(ctx context.Context) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Update(TableIngestions).
		Set("status", domain.StatusPending).
		Where(sq.Eq{"status": domain.StatusProcessing}).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	_, err = db.Exec(ctx, sql, args...)
	if err != nil {
		return executeQueryError(err)
	}

	return nil
}
