package postgresql

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/galenhq/partner_ingest/internal/pipeline"
	"github.com/jackc/pgx/v5/pgconn"
)

func createQueryError(err error) error {
	return fmt.Errorf("failed to create query: %w", err)
}

func executeQueryError(err error) error {
	return fmt.Errorf("failed to execute query: %w", err)
}

func scanRowError(err error) error {
	return fmt.Errorf("failed to scan row: %w", err)
}

func collectRowsError(err error) error {
	return fmt.Errorf("failed to collect rows: %w", err)
}

// transientSQLStates are the retryable Postgres failures: connection
// problems, serialization/deadlock aborts, resource exhaustion, admin
// shutdown. Constraint violations and malformed statements are deliberately
// absent so the resilience wrapper propagates them immediately.
var transientSQLStates = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"53300": {}, // too_many_connections
	"55P03": {}, // lock_not_available
	"57P01": {}, // admin_shutdown
}

// classifyError marks retryable failures with the pipeline's transient
// signal. Everything else passes through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := transientSQLStates[pgErr.SQLState()]; ok {
			return pipeline.Transient(err)
		}

		// Class 08: any connection exception.
		if len(pgErr.SQLState()) == 5 && pgErr.SQLState()[:2] == "08" {
			return pipeline.Transient(err)
		}

		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return pipeline.Transient(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return pipeline.Transient(err)
	}

	return err
}
