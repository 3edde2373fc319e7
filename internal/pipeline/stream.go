package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/galenhq/partner_ingest/internal/domain"
	"github.com/jszwec/csvutil"
)

const rawLineUnavailable = "[unable to capture]"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RowStreamer turns a partner CSV byte stream into a lazy sequence of per-row
// outcomes. The sequence is single-pass and produces outcomes strictly in
// 1-based row-index order; memory stays bounded regardless of file size.
type RowStreamer struct {
	log     *slog.Logger
	maxRows int
}

func NewRowStreamer(log *slog.Logger, maxRows int) *RowStreamer {
	return &RowStreamer{
		log:     log,
		maxRows: maxRows,
	}
}

// Rows yields one RowOutcome per data row (header excluded). Per-row decode
// and validation failures become RejectedRow outcomes and never abort the
// sequence. The error value is non-nil only for terminal conditions: a
// missing or unreadable header, a hard I/O failure, or cancellation. After
// the configured row maximum the sequence yields a single synthetic
// truncation rejection and stops.
func (s *RowStreamer) Rows(ctx context.Context, r io.Reader, sourceFile string) iter.Seq2[domain.RowOutcome, error] {
	return func(yield func(domain.RowOutcome, error) bool) {
		br := bufio.NewReader(r)
		skipBOM(br)

		csvReader := csv.NewReader(br)

		dec, err := csvutil.NewDecoder(csvReader)
		if err != nil {
			yield(domain.RowOutcome{}, fmt.Errorf("failed to read header: %w", err))
			return
		}

		rowIndex := 1
		for {
			if err := ctx.Err(); err != nil {
				yield(domain.RowOutcome{}, err)
				return
			}

			var raw domain.RawRow

			err := dec.Decode(&raw)
			if errors.Is(err, io.EOF) {
				return
			}

			// A row was consumed, decoded or not; the hard stop fires only
			// once an excess row actually exists.
			if rowIndex > s.maxRows {
				s.log.WarnContext(ctx, "file exceeded max rows, truncating",
					slog.String("source_file", sourceFile),
					slog.Int("max_rows", s.maxRows),
				)

				yield(domain.RowOutcome{Rejected: &domain.RejectedRow{
					RowIndex: rowIndex,
					RawLine:  fmt.Sprintf("[truncated - max rows %d exceeded]", s.maxRows),
					Errors:   []string{fmt.Sprintf("file exceeded maximum allowed rows (%d)", s.maxRows)},
				}}, nil)
				return
			}

			if err != nil {
				var parseErr *csv.ParseError
				if !errors.As(err, &parseErr) {
					yield(domain.RowOutcome{}, fmt.Errorf("failed to read row %d: %w", rowIndex, err))
					return
				}

				s.log.DebugContext(ctx, "parse error",
					slog.String("source_file", sourceFile),
					slog.Int("row", rowIndex),
					slog.String("err", err.Error()),
				)

				if !yield(domain.RowOutcome{Rejected: &domain.RejectedRow{
					RowIndex: rowIndex,
					RawLine:  capturedRawLine(dec),
					Errors:   []string{"Parse error: " + err.Error()},
				}}, nil) {
					return
				}

				rowIndex++
				continue
			}

			record, fieldErrs := validateRow(raw, rowIndex)
			if record == nil {
				if !yield(domain.RowOutcome{Rejected: &domain.RejectedRow{
					RowIndex: rowIndex,
					RawLine:  rawLineFallback(dec, raw),
					Errors:   fieldErrs,
				}}, nil) {
					return
				}

				rowIndex++
				continue
			}

			record.SourceFile = sourceFile
			if !yield(domain.RowOutcome{Record: record}, nil) {
				return
			}

			rowIndex++
		}
	}
}

// skipBOM discards a UTF-8 byte-order mark when the stream starts with one.
func skipBOM(br *bufio.Reader) {
	head, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
}

func capturedRawLine(dec *csvutil.Decoder) string {
	record := dec.Record()
	if len(record) == 0 {
		return rawLineUnavailable
	}
	return strings.Join(record, ",")
}

// rawLineFallback prefers the fields as read; when the decoder exposes
// nothing it reconstructs the line from the decoded struct.
func rawLineFallback(dec *csvutil.Decoder, raw domain.RawRow) string {
	if record := dec.Record(); len(record) > 0 {
		return strings.Join(record, ",")
	}
	return strings.Join([]string{raw.Id, raw.PatientId, raw.DocType, raw.DocDate, raw.Description, raw.SourceSystem}, ",")
}
