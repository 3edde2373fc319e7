package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/galenhq/partner_ingest/internal/infrastructure/localstore"
	"github.com/galenhq/partner_ingest/internal/pipeline"
	"github.com/urfave/cli/v3"
)

// processCmd runs one local CSV file through the full pipeline with no-op
// persistence and blob transitions. Exit code 0 covers runs with rejected
// rows; only a missing file or an unhandled failure exits non-zero.
func processCmd() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Process a single local CSV file without external services",
		ArgsUsage: "<path-to-csv>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Value: 500,
				Usage: "Set persistence batch size",
			},
			&cli.IntFlag{
				Name:  "max-rows-per-file",
				Value: 100_000,
				Usage: "Set maximum data rows accepted per file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, ok := ctx.Value(loggerKey{}).(*slog.Logger)
			if !ok {
				return errors.New("failed to get logger from context")
			}

			path := cmd.Args().First()
			if path == "" {
				return errors.New("usage: partner_ingest process <path-to-csv>")
			}

			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("file not found: %q", path)
			}

			return processLocalFile(ctx, log, path, int(cmd.Int("batch-size")), int(cmd.Int("max-rows-per-file")))
		},
	}
}

func processLocalFile(ctx context.Context, log *slog.Logger, path string, batchSize, maxRows int) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	store := localstore.New(dir)

	streamer := pipeline.NewRowStreamer(log, maxRows)
	processor := pipeline.NewFileProcessor(log, streamer, localstore.Saver{}, store, batchSize)
	coordinator := pipeline.NewCoordinator(log, store, localstore.Leaser{}, processor, localstore.Ledger{}, time.Minute)

	result, err := coordinator.ProcessFile(ctx, name)
	if err != nil {
		return err
	}

	fmt.Printf("File: %s\n", result.FileName)
	fmt.Printf("Total rows: %d\n", result.TotalRowsRead)
	fmt.Printf("Accepted: %d\n", result.RowsAccepted)
	fmt.Printf("Rejected: %d\n", result.RowsRejected)

	for _, rejected := range result.RejectedRows {
		fmt.Printf("  Row %d: %s\n", rejected.RowIndex, strings.Join(rejected.Errors, "; "))
	}

	return nil
}
