package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/metrics"
)

// Sink persists report records and returns how many were written.
type Sink interface {
	Write(ctx context.Context, records []Record) (int, error)
}

// WriteCSV writes t as CSV, header first.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// CSVSink writes a table to a file, or to Out when Path is "-".
type CSVSink struct {
	Path   string
	Out    io.Writer // defaults to os.Stdout
	Logger *zap.Logger
}

func (s CSVSink) Write(ctx context.Context, records []Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t := BuildTable(records)

	w := s.Out
	if w == nil {
		w = os.Stdout
	}
	if s.Path != "-" {
		f, err := os.Create(s.Path)
		if err != nil {
			return 0, fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := WriteCSV(w, t); err != nil {
		return 0, err
	}

	metrics.RecordReportRows("csv", len(t.Rows))
	logging.OrNop(s.Logger).Info("report written",
		zap.String("path", s.Path),
		zap.Int("rows", len(t.Rows)),
		zap.Int("columns", len(t.Headers)),
	)
	return len(t.Rows), nil
}
