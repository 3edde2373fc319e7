package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/galenhq/partner_ingest/internal/domain"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultMaxRetries      = 3
	defaultInitialInterval = 500 * time.Millisecond

	breakerMinRequests  = 5
	breakerFailureRatio = 0.5
	breakerOpenDuration = 30 * time.Second
)

// RetryConfig bounds the retry loop of a ResilientSaver.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      defaultMaxRetries,
		InitialInterval: defaultInitialInterval,
	}
}

// NewSaverBreaker builds the circuit breaker shared by every file's
// persistence calls: one file's transient failures open it for all files,
// which is the intended backpressure. Only transient failures count toward
// tripping.
func NewSaverBreaker(log *slog.Logger) *gobreaker.CircuitBreaker[int64] {
	return gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:    "record-saver",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= breakerMinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
}

// ResilientSaver decorates a RecordSaver with retry and circuit breaking. It
// satisfies RecordSaver itself, so it composes with any underlying store.
// Transient failures are retried with jittered exponential backoff; while the
// breaker is open calls fail fast without touching the inner saver;
// everything else propagates immediately.
type ResilientSaver struct {
	log     *slog.Logger
	inner   RecordSaver
	breaker *gobreaker.CircuitBreaker[int64]
	cfg     RetryConfig
}

func NewResilientSaver(
	log *slog.Logger,
	inner RecordSaver,
	breaker *gobreaker.CircuitBreaker[int64],
	cfg RetryConfig,
) *ResilientSaver {
	return &ResilientSaver{
		log:     log,
		inner:   inner,
		breaker: breaker,
		cfg:     cfg,
	}
}

func (s *ResilientSaver) SaveBatch(ctx context.Context, records []*domain.CanonicalRecord, sourceFile string) (int64, error) {
	attempt := 0

	operation := func() (int64, error) {
		attempt++

		count, err := s.breaker.Execute(func() (int64, error) {
			return s.inner.SaveBatch(ctx, records, sourceFile)
		})
		if err == nil {
			return count, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, backoff.Permanent(err)
		}

		if !IsTransient(err) {
			return 0, backoff.Permanent(err)
		}

		s.log.WarnContext(ctx, "transient save failure, will retry",
			slog.String("source_file", sourceFile),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)

		return 0, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.InitialInterval
	bo.MaxElapsedTime = 0

	return backoff.RetryWithData(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.MaxRetries), ctx),
	)
}
