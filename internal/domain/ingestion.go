package domain

import "time"

// Ingestion is one row of the ingestion ledger: the durable processing status
// of a single inbound file.
type Ingestion struct {
	Name         string     `db:"name"          json:"name"`
	Status       Status     `db:"status"        json:"status"`
	RowsAccepted int        `db:"rows_accepted" json:"rows_accepted"`
	RowsRejected int        `db:"rows_rejected" json:"rows_rejected"`
	TotalRows    int        `db:"total_rows"    json:"total_rows"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	ProcessedAt  *time.Time `db:"processed_at"  json:"processed_at,omitempty"`
}
