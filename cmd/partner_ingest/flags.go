package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/galenhq/partner_ingest/internal/app"
	"github.com/galenhq/partner_ingest/internal/config"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
)

var version = "dev"

func cmd() *cli.Command {
	return &cli.Command{
		Name:    "partner_ingest",
		Usage:   "partner CSV ingestion service",
		Version: version,
		Flags:   flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, ok := ctx.Value(loggerKey{}).(*slog.Logger)
			if !ok {
				return errors.New("failed to get logger from context")
			}

			cfg := config.Load(cmd)

			return app.New(log, cfg).Run(ctx)
		},
		Commands: []*cli.Command{
			processCmd(),
		},
	}
}

func flags() []cli.Flag {
	var config string

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Validator:   validateConfig,
			Usage:       "Load configuration from `FILE`",
			Destination: &config,
		},
		&cli.DurationFlag{
			Name:    "scan-interval",
			Aliases: []string{"s"},
			Value:   10 * time.Second,
			Usage:   "Set inbound bucket scan interval",
			Sources: cli.NewValueSourceChain(yaml.YAML("app.scan_interval", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.IntFlag{
			Name:    "workers",
			Value:   4,
			Usage:   "Set number of concurrent file workers",
			Sources: cli.NewValueSourceChain(yaml.YAML("app.workers", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.IntFlag{
			Name:    "batch-size",
			Value:   500,
			Usage:   "Set persistence batch size",
			Sources: cli.NewValueSourceChain(yaml.YAML("app.batch_size", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.IntFlag{
			Name:    "max-rows-per-file",
			Value:   100_000,
			Usage:   "Set maximum data rows accepted per file",
			Sources: cli.NewValueSourceChain(yaml.YAML("app.max_rows_per_file", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.DurationFlag{
			Name:    "lease-duration",
			Value:   60 * time.Second,
			Usage:   "Set per-file lease duration",
			Sources: cli.NewValueSourceChain(yaml.YAML("app.lease_duration", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.StringFlag{
			Name:     "pg-host",
			Usage:    "Set PostgreSQL host",
			Value:    "localhost",
			Sources:  cli.NewValueSourceChain(yaml.YAML("postgresql.host", altsrc.NewStringPtrSourcer(&config))),
			Required: true,
		},
		&cli.StringFlag{
			Name:     "pg-port",
			Usage:    "Set PostgreSQL port",
			Value:    "5432",
			Sources:  cli.NewValueSourceChain(yaml.YAML("postgresql.port", altsrc.NewStringPtrSourcer(&config))),
			Required: true,
		},
		&cli.StringFlag{
			Name:     "pg-username",
			Usage:    "Set PostgreSQL username",
			Sources:  cli.NewValueSourceChain(yaml.YAML("postgresql.username", altsrc.NewStringPtrSourcer(&config))),
			Required: true,
		},
		&cli.StringFlag{
			Name:     "pg-password",
			Usage:    "Set PostgreSQL password",
			Sources:  cli.NewValueSourceChain(yaml.YAML("postgresql.password", altsrc.NewStringPtrSourcer(&config))),
			Required: true,
		},
		&cli.StringFlag{
			Name:     "pg-dbname",
			Usage:    "Set PostgreSQL database name",
			Value:    "partner_ingest",
			Sources:  cli.NewValueSourceChain(yaml.YAML("postgresql.dbname", altsrc.NewStringPtrSourcer(&config))),
			Required: true,
		},
		&cli.StringFlag{
			Name:     "blob-endpoint",
			Usage:    "Set blob store endpoint",
			Sources:  cli.NewValueSourceChain(yaml.YAML("blob.endpoint", altsrc.NewStringPtrSourcer(&config))),
			Required: true,
		},
		&cli.StringFlag{
			Name:     "blob-access-key",
			Usage:    "Set blob store access key id",
			Sources:  cli.NewValueSourceChain(yaml.YAML("blob.access_key", altsrc.NewStringPtrSourcer(&config))),
			Required: true,
		},
		&cli.StringFlag{
			Name:     "blob-secret-key",
			Usage:    "Set blob store secret access key",
			Sources:  cli.NewValueSourceChain(yaml.YAML("blob.secret_key", altsrc.NewStringPtrSourcer(&config))),
			Required: true,
		},
		&cli.BoolFlag{
			Name:    "blob-use-ssl",
			Usage:   "Use TLS for the blob store connection",
			Sources: cli.NewValueSourceChain(yaml.YAML("blob.use_ssl", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.StringFlag{
			Name:     "blob-bucket",
			Usage:    "Set blob store bucket",
			Value:    "partner-files",
			Sources:  cli.NewValueSourceChain(yaml.YAML("blob.bucket", altsrc.NewStringPtrSourcer(&config))),
			Required: true,
		},
		&cli.StringFlag{
			Name:    "blob-inbound-prefix",
			Usage:   "Set inbound objects prefix",
			Value:   "inbound",
			Sources: cli.NewValueSourceChain(yaml.YAML("blob.inbound_prefix", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.StringFlag{
			Name:    "blob-processed-prefix",
			Usage:   "Set processed objects prefix",
			Value:   "processed",
			Sources: cli.NewValueSourceChain(yaml.YAML("blob.processed_prefix", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.StringFlag{
			Name:    "blob-quarantine-prefix",
			Usage:   "Set quarantined objects prefix",
			Value:   "quarantine",
			Sources: cli.NewValueSourceChain(yaml.YAML("blob.quarantine_prefix", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.StringFlag{
			Name:    "blob-errors-prefix",
			Usage:   "Set errors documents prefix",
			Value:   "errors",
			Sources: cli.NewValueSourceChain(yaml.YAML("blob.errors_prefix", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.StringFlag{
			Name:    "blob-markers-prefix",
			Usage:   "Set processed markers prefix",
			Value:   "markers",
			Sources: cli.NewValueSourceChain(yaml.YAML("blob.markers_prefix", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.StringFlag{
			Name:     "redis-addr",
			Usage:    "Set Redis address for leases",
			Value:    "localhost:6379",
			Sources:  cli.NewValueSourceChain(yaml.YAML("redis.addr", altsrc.NewStringPtrSourcer(&config))),
			Required: true,
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Set Redis password",
			Sources: cli.NewValueSourceChain(yaml.YAML("redis.password", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Set Redis database number",
			Sources: cli.NewValueSourceChain(yaml.YAML("redis.db", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.StringFlag{
			Name:    "http-host",
			Usage:   "Set HTTP server host",
			Value:   "localhost",
			Sources: cli.NewValueSourceChain(yaml.YAML("http.host", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.StringFlag{
			Name:    "http-port",
			Usage:   "Set HTTP server port",
			Value:   "8080",
			Sources: cli.NewValueSourceChain(yaml.YAML("http.port", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.DurationFlag{
			Name:    "http-idle-timeout",
			Usage:   "Set HTTP server idle timeout",
			Value:   1 * time.Minute,
			Sources: cli.NewValueSourceChain(yaml.YAML("http.idle_timeout", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.DurationFlag{
			Name:    "http-read-timeout",
			Usage:   "Set HTTP server read timeout",
			Value:   15 * time.Second,
			Sources: cli.NewValueSourceChain(yaml.YAML("http.read_timeout", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.DurationFlag{
			Name:    "http-write-timeout",
			Usage:   "Set HTTP server write timeout",
			Value:   15 * time.Second,
			Sources: cli.NewValueSourceChain(yaml.YAML("http.write_timeout", altsrc.NewStringPtrSourcer(&config))),
		},
	}
}

func validateConfig(config string) error {
	info, err := os.Stat(config)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%q does not exist", config)
		}
		return fmt.Errorf("failed to stat %q: %w", config, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", config)
	}

	ext := filepath.Ext(info.Name())
	if ext != ".yml" && ext != ".yaml" {
		return fmt.Errorf("invalid extension %q", config)
	}

	return nil
}
