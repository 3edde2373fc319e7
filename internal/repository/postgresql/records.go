package postgresql

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/galenhq/partner_ingest/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const TableRecords = "records"

var recordColumns = []string{
	"external_id",
	"patient_identifier",
	"document_type",
	"document_date",
	"description",
	"source_system",
	"source_file",
	"source_row_index",
}

type RecordsRepository struct {
	pool *pgxpool.Pool
	qb   sq.StatementBuilderType
}

func NewRecordsRepository(pool *pgxpool.Pool) *RecordsRepository {
	return &RecordsRepository{
		pool: pool,
		qb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveBatch inserts one batch of canonical records. (source_file,
// source_row_index) is the table's natural key; re-submitting an
// already-persisted batch inserts nothing and is not an error. Returns the
// number of rows actually inserted.
func (r *RecordsRepository) SaveBatch(ctx context.Context, records []*domain.CanonicalRecord, sourceFile string) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	db := extractDB(ctx, r.pool)

	builder := r.qb.
		Insert(TableRecords).
		Columns(recordColumns...)

	for _, record := range records {
		builder = builder.Values(
			record.ExternalId,
			record.PatientIdentifier,
			record.DocumentType,
			record.DocumentDate,
			record.Description,
			record.SourceSystem,
			sourceFile,
			record.SourceRowIndex,
		)
	}

	sql, args, err := builder.
		Suffix("ON CONFLICT (source_file, source_row_index) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, createQueryError(err)
	}

	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, classifyError(fmt.Errorf("failed to insert records: %w", err))
	}

	return tag.RowsAffected(), nil
}

// RecordsByFile returns one page of persisted records for a source file in
// row-index order, plus the total count.
func (r *RecordsRepository) RecordsByFile(
	ctx context.Context,
	sourceFile string,
	limit, offset uint64,
) ([]*domain.CanonicalRecord, int, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("COUNT(*)").
		From(TableRecords).
		Where(sq.Eq{"source_file": sourceFile}).
		ToSql()
	if err != nil {
		return nil, -1, createQueryError(err)
	}

	var total int
	if err := db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, -1, scanRowError(err)
	}

	sql, args, err = r.qb.
		Select(recordColumns...).
		From(TableRecords).
		Where(sq.Eq{"source_file": sourceFile}).
		OrderBy("source_row_index ASC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, -1, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, -1, executeQueryError(err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[domain.CanonicalRecord])
	if err != nil {
		return nil, -1, collectRowsError(err)
	}

	return records, total, nil
}
