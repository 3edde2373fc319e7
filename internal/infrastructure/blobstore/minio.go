// Package blobstore implements the pipeline's file store over an
// S3-compatible bucket.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/galenhq/partner_ingest/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	initMaxRetries      = 5
	initInitialInterval = time.Second
	initMaxInterval     = 30 * time.Second

	// Object user metadata has tight size limits; quarantine summaries are
	// clipped to fit.
	maxErrorSummaryLen = 1024
)

// Store keeps the bucket layout in one place:
//
//	inbound/<name>              files awaiting processing
//	processed/YYYY/MM/DD/<name> successfully processed files
//	quarantine/<stamp>-<name>   fatally failed files, error summary attached
//	errors/<base>.errors.json   rejected-row companion documents
//	markers/<name>.processed    idempotency markers
type Store struct {
	log    *slog.Logger
	client *minio.Client
	bucket string
	cfg    config.Blob
}

func New(ctx context.Context, log *slog.Logger, cfg config.Blob) (*Store, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Store{
		log:    log,
		client: client,
		bucket: cfg.Bucket,
		cfg:    cfg,
	}, nil
}

func newClient(ctx context.Context, cfg config.Blob) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty blob endpoint")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("empty blob bucket")
	}

	var lastErr error
	interval := initInitialInterval

	for attempt := range initMaxRetries {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("context canceled before blob store init: %w", ctx.Err())
		}

		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			lastErr = fmt.Errorf("create blob client: %w", err)
		} else {
			if err := ensureBucket(ctx, client, cfg.Bucket); err != nil {
				lastErr = err
			} else {
				return client, nil
			}
		}

		if attempt < initMaxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context canceled while waiting to retry blob init: %w", ctx.Err())
			case <-time.After(interval):
				interval *= 2
				if interval > initMaxInterval {
					interval = initMaxInterval
				}
			}
		}
	}

	return nil, fmt.Errorf("blob store init failed after %d attempts: %w", initMaxRetries, lastErr)
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket exists: %w", err)
	}
	if exists {
		return nil
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.inboundKey(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", name, err)
	}

	return obj, nil
}

func (s *Store) ListInbound(ctx context.Context) ([]string, error) {
	prefix := s.prefixed(s.cfg.InboundPrefix, "")

	var names []string
	for objectInfo := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if objectInfo.Err != nil {
			return nil, fmt.Errorf("failed to list inbound objects: %w", objectInfo.Err)
		}

		name := strings.TrimPrefix(objectInfo.Key, prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}

		names = append(names, name)
	}

	return names, nil
}

func (s *Store) IsProcessed(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.markerKey(name), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat processed marker: %w", err)
	}

	return true, nil
}

func (s *Store) MarkProcessed(ctx context.Context, name, processingID string) error {
	marker, err := json.Marshal(map[string]string{
		"processedAt":  time.Now().UTC().Format(time.RFC3339),
		"processingId": processingID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal processed marker: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.markerKey(name), bytes.NewReader(marker), int64(len(marker)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"Processing-Id": processingID,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put processed marker: %w", err)
	}

	s.log.DebugContext(ctx, "set processed marker",
		slog.String("filename", name),
		slog.String("processing_id", processingID),
	)

	return nil
}

func (s *Store) MoveToProcessed(ctx context.Context, name string) error {
	dest := s.prefixed(s.cfg.ProcessedPrefix, path.Join(time.Now().UTC().Format("2006/01/02"), name))

	return s.relocate(ctx, s.inboundKey(name), dest, nil)
}

func (s *Store) MoveToQuarantine(ctx context.Context, name, errorSummary string) error {
	if len(errorSummary) > maxErrorSummaryLen {
		errorSummary = errorSummary[:maxErrorSummaryLen]
	}

	dest := s.prefixed(s.cfg.QuarantinePrefix, time.Now().UTC().Format("20060102150405")+"-"+path.Base(name))

	err := s.relocate(ctx, s.inboundKey(name), dest, map[string]string{
		"Error-Summary": errorSummary,
	})
	if err != nil {
		return err
	}

	s.log.WarnContext(ctx, "moved file to quarantine",
		slog.String("filename", name),
		slog.String("error_summary", errorSummary),
	)

	return nil
}

func (s *Store) WriteErrorsFile(ctx context.Context, name string, doc []byte) error {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	key := s.prefixed(s.cfg.ErrorsPrefix, base+".errors.json")

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(doc), int64(len(doc)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to put errors document: %w", err)
	}

	s.log.InfoContext(ctx, "wrote errors document",
		slog.String("key", key),
		slog.Int("bytes", len(doc)),
	)

	return nil
}

// relocate copies src to dest (optionally replacing user metadata) and then
// removes src. Copy-then-delete is the only move available on object stores.
func (s *Store) relocate(ctx context.Context, src, dest string, metadata map[string]string) error {
	destOpts := minio.CopyDestOptions{
		Bucket: s.bucket,
		Object: dest,
	}

	if len(metadata) > 0 {
		destOpts.UserMetadata = metadata
		destOpts.ReplaceMetadata = true
	}

	_, err := s.client.CopyObject(ctx, destOpts, minio.CopySrcOptions{
		Bucket: s.bucket,
		Object: src,
	})
	if err != nil {
		return fmt.Errorf("failed to copy %q to %q: %w", src, dest, err)
	}

	err = s.client.RemoveObject(ctx, s.bucket, src, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove %q after copy: %w", src, err)
	}

	return nil
}

func (s *Store) inboundKey(name string) string {
	return s.prefixed(s.cfg.InboundPrefix, name)
}

func (s *Store) markerKey(name string) string {
	return s.prefixed(s.cfg.MarkersPrefix, name+".processed")
}

func (s *Store) prefixed(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix + "/"
	}
	return prefix + "/" + name
}
