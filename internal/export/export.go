// Package export renders the submission ⋈ phrase join as a downloadable
// report.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"

	"voicecollect/internal/fileutil"
	"voicecollect/internal/logging"
	"voicecollect/internal/phrases"
)

// Format selects the report encoding.
type Format string

const (
	FormatXLSX  Format = "xlsx"
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
)

// SheetName is the worksheet holding xlsx rows.
const SheetName = "Submissions"

// Header is the column order shared by every format.
var Header = []string{"submission_id", "phrase", "contributor_id", "audio_ref", "created_at"}

// ParseFormat accepts xlsx, csv or table, case-insensitively.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatXLSX, FormatCSV, FormatTable:
		return f, nil
	case "":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want xlsx, csv or table)", value)
	}
}

// ContentType is the HTTP media type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// FileName is the download name for f.
func (f Format) FileName() string {
	ext := string(f)
	if f == FormatTable {
		ext = "txt"
	}
	return "submissions_export." + ext
}

// RowSource streams export rows.
type RowSource interface {
	EachExportRow(ctx context.Context, fn func(phrases.ExportRow) error) error
}

// Reporter renders reports from a RowSource.
type Reporter struct {
	source RowSource
	logger *slog.Logger
}

// NewReporter wraps source.
func NewReporter(source RowSource, logger *slog.Logger) *Reporter {
	return &Reporter{source: source, logger: logging.NewComponentLogger(logger, "export")}
}

// Write renders every row to w and returns the row count.
func (r *Reporter) Write(ctx context.Context, w io.Writer, format Format) (int, error) {
	switch format {
	case FormatXLSX:
		return r.writeXLSX(ctx, w)
	case FormatCSV:
		return r.writeCSV(ctx, w)
	case FormatTable:
		return r.writeTable(ctx, w)
	default:
		return 0, fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteFile renders into dir atomically and returns the written path.
func (r *Reporter) WriteFile(ctx context.Context, dir string, format Format) (string, int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create export directory: %w", err)
	}
	target := filepath.Join(dir, format.FileName())
	var rows int
	err := fileutil.WriteAtomic(target, 0o644, func(w io.Writer) error {
		n, err := r.Write(ctx, w, format)
		rows = n
		return err
	})
	if err != nil {
		return "", 0, err
	}
	r.logger.Info("export written",
		logging.String("path", target),
		logging.String("format", string(format)),
		logging.Int("rows", rows),
		logging.String(logging.FieldEventType, "export_written"),
	)
	return target, rows, nil
}

func record(row phrases.ExportRow) []string {
	return []string{row.SubmissionID, row.PhraseText, row.ContributorID, row.AudioRef, row.CreatedAt.UTC().Format(time.RFC3339)}
}

// writeCSV streams RFC 4180 records; go-pretty's CSV renderer buffers the
// whole table and escapes quotes with backslashes.
func (r *Reporter) writeCSV(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	count := 0
	err := r.source.EachExportRow(ctx, func(row phrases.ExportRow) error {
		count++
		return cw.Write(record(row))
	})
	if err != nil {
		return 0, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("write csv export: %w", err)
	}
	return count, nil
}

func (r *Reporter) writeTable(ctx context.Context, w io.Writer) (int, error) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(Header))
	count := 0
	err := r.source.EachExportRow(ctx, func(row phrases.ExportRow) error {
		tw.AppendRow(toRow(record(row)))
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	if _, err := io.WriteString(w, tw.Render()+"\n"); err != nil {
		return 0, fmt.Errorf("write table export: %w", err)
	}
	return count, nil
}

func (r *Reporter) writeXLSX(ctx context.Context, w io.Writer) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return 0, fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return 0, fmt.Errorf("open sheet stream: %w", err)
	}
	if err := sw.SetRow("A1", toCells(Header)); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	count := 0
	err = r.source.EachExportRow(ctx, func(row phrases.ExportRow) error {
		cell, err := excelize.CoordinatesToCellName(1, count+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(record(row))); err != nil {
			return fmt.Errorf("write row %d: %w", count+1, err)
		}
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := sw.Flush(); err != nil {
		return 0, fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return count, nil
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
